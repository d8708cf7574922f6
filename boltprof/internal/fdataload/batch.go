package fdataload

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// LoadAll loads paths concurrently. Results are returned in the order of paths.
// The first failure cancels the remaining loads.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]*Result, error) {
	ctx, span := otel.Tracer("fdataload").Start(ctx, "fdataload.(*Loader).LoadAll")
	defer span.End()
	span.SetAttributes(attribute.Int("files", len(paths)))

	var inflight *semaphore.Weighted
	if l.opts.MaxInFlightBytes > 0 {
		inflight = semaphore.NewWeighted(int64(l.opts.MaxInFlightBytes))
	}

	results := make([]*Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i, path := range paths {
		i, path := i, path // per-iteration copies (go directive is 1.21)
		g.Go(func() error {
			if inflight != nil {
				weight, err := l.weight(path)
				if err != nil {
					return err
				}
				if err := inflight.Acquire(ctx, weight); err != nil {
					return err
				}
				defer inflight.Release(weight)
			}

			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := l.LoadFile(ctx, path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		l.logger.Error(ctx, "Failed to load fdata files", zap.Int("files", len(paths)), zap.Error(err))
		return nil, err
	}
	return results, nil
}

// weight is the number of in-flight bytes a file occupies, capped so that a single
// file always fits.
func (l *Loader) weight(path string) (int64, error) {
	info, err := l.opts.FS.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return min(info.Size(), int64(l.opts.MaxInFlightBytes)), nil
}
