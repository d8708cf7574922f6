package buildinfo

import (
	"fmt"
	"io"
	"runtime/debug"
)

// Version is overridden at link time with -ldflags "-X ...buildinfo.Version=...".
var Version = ""

func ProgramVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	version := info.Main.Version
	if version == "" {
		version = "(devel)"
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			version = fmt.Sprintf("%s (%s)", version, setting.Value)
		case "vcs.modified":
			if setting.Value == "true" {
				version += " dirty"
			}
		}
	}
	return version
}

func Dump(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\n", ProgramVersion())
	return err
}
