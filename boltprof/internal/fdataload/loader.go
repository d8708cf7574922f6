package fdataload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/yandex/boltprof/boltprof/internal/xmetrics"
	"github.com/yandex/boltprof/boltprof/pkg/fdata"
	"github.com/yandex/boltprof/boltprof/pkg/xlog"
)

var ErrFileTooLarge = errors.New("fdata file is too large")

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

////////////////////////////////////////////////////////////////////////////////

type Options struct {
	// Filesystem to read profiles from. Defaults to the OS filesystem.
	FS afero.Fs
	// Parse every file as a no-LBR profile, even without the header.
	ForceNoLBR bool
	// Files (after decompression) larger than this are rejected. Zero means no limit.
	MaxFileSize uint64
	// Number of files LoadAll parses in parallel.
	Concurrency int
	// Upper bound on the total size of files LoadAll keeps in memory at once.
	// Zero means no limit.
	MaxInFlightBytes uint64
}

func (o *Options) fillDefault() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.FS == nil {
		o.FS = afero.NewOsFs()
	}
}

// Result is a successfully parsed file.
type Result struct {
	Name       string
	LoadID     uuid.UUID
	Reader     *fdata.Reader
	Compressed bool
	// Size of the file content after decompression.
	Size     uint64
	Checksum uint64
	Duration time.Duration
}

func (r *Result) Mode() string {
	if r.Reader.HasLBR() {
		return "lbr"
	}
	return "no_lbr"
}

////////////////////////////////////////////////////////////////////////////////

type Loader struct {
	logger  xlog.Logger
	opts    Options
	metrics *loaderMetrics
	decoder *zstd.Decoder
}

func NewLoader(logger xlog.Logger, registry xmetrics.Registry, opts Options) (*Loader, error) {
	opts.fillDefault()

	decoderOpts := []zstd.DOption{}
	if opts.MaxFileSize > 0 {
		decoderOpts = append(decoderOpts, zstd.WithDecoderMaxMemory(opts.MaxFileSize))
	}
	decoder, err := zstd.NewReader(nil, decoderOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Loader{
		logger:  logger.WithName("fdataload"),
		opts:    opts,
		metrics: newLoaderMetrics(registry),
		decoder: decoder,
	}, nil
}

func (l *Loader) Close() {
	l.decoder.Close()
}

// LoadFile reads and parses the fdata file at path. Zstd-compressed files are
// recognized by their magic and decompressed transparently.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	ctx, span := otel.Tracer("fdataload").Start(ctx, "fdataload.(*Loader).LoadFile")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	res, err := l.loadFile(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (*Result, error) {
	info, err := l.opts.FS.Stat(path)
	if err != nil {
		return nil, err
	}
	if l.opts.MaxFileSize > 0 && uint64(info.Size()) > l.opts.MaxFileSize {
		return nil, fmt.Errorf("%s: %d bytes: %w", path, info.Size(), ErrFileTooLarge)
	}

	data, err := afero.ReadFile(l.opts.FS, path)
	if err != nil {
		return nil, err
	}
	return l.LoadBytes(ctx, path, data)
}

// LoadBytes parses data, which may be zstd-compressed. Name identifies the
// profile in logs and results.
func (l *Loader) LoadBytes(ctx context.Context, name string, data []byte) (*Result, error) {
	ctx, span := otel.Tracer("fdataload").Start(ctx, "fdataload.(*Loader).LoadBytes")
	defer span.End()

	res := &Result{
		Name:   name,
		LoadID: uuid.Must(uuid.NewV4()),
	}
	logger := l.logger.With(zap.String("name", name), zap.Stringer("load.id", res.LoadID))

	compression := "none"
	if bytes.HasPrefix(data, zstdMagic) {
		var err error
		data, err = l.decoder.DecodeAll(data, nil)
		if err != nil {
			l.metrics.files.WithLabelValues("unknown", "error").Inc()
			return nil, fmt.Errorf("%s: failed to decompress: %w", name, err)
		}
		res.Compressed = true
		compression = "zstd"
	}
	l.metrics.bytes.WithLabelValues(compression).Add(float64(len(data)))

	if l.opts.MaxFileSize > 0 && uint64(len(data)) > l.opts.MaxFileSize {
		l.metrics.files.WithLabelValues("unknown", "error").Inc()
		return nil, fmt.Errorf("%s: %d bytes: %w", name, len(data), ErrFileTooLarge)
	}

	res.Size = uint64(len(data))
	res.Checksum = xxhash.Sum64(data)
	span.SetAttributes(
		attribute.Int64("size", int64(res.Size)),
		attribute.Bool("compressed", res.Compressed),
	)

	diag := xlog.NewDiagWriter(ctx, logger)
	defer diag.Close()

	start := time.Now()
	res.Reader = fdata.NewReader(data, diag)
	var err error
	if l.opts.ForceNoLBR {
		err = res.Reader.ParseInNoLBRMode()
	} else {
		err = res.Reader.Parse()
	}
	res.Duration = time.Since(start)

	mode := res.Mode()
	l.metrics.parseDuration.WithLabelValues(mode).Observe(res.Duration.Seconds())
	if err != nil {
		l.metrics.files.WithLabelValues(mode, "error").Inc()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	l.metrics.files.WithLabelValues(mode, "ok").Inc()
	l.recordStats(res.Reader.Stats())

	logger.Debug(ctx, "Loaded fdata profile",
		zap.String("mode", mode),
		zap.Uint64("size", res.Size),
		zap.Bool("compressed", res.Compressed),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (l *Loader) recordStats(stats fdata.ParseStats) {
	l.metrics.records.WithLabelValues("branch").Add(float64(stats.BranchRecords))
	l.metrics.records.WithLabelValues("mem").Add(float64(stats.MemRecords))
	l.metrics.records.WithLabelValues("sample").Add(float64(stats.SampleRecords))
	l.metrics.skipped.WithLabelValues("branch").Add(float64(stats.SkippedBranches))
	l.metrics.skipped.WithLabelValues("mem").Add(float64(stats.SkippedMem))
	l.metrics.skipped.WithLabelValues("sample").Add(float64(stats.SkippedSamples))
}
