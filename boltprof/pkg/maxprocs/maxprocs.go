package maxprocs

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Adjust sets GOMAXPROCS to the container CPU quota.
// Messages from automaxprocs are printed only when verbose is set.
func Adjust(verbose bool) {
	opts := []maxprocs.Option{}
	if verbose {
		opts = append(opts, maxprocs.Logger(func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	}

	_, err := maxprocs.Set(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set GOMAXPROCS: %v\n", err)
	}
}
