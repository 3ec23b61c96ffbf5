// Package aggregate builds snapshots from partitioned upstream data: one fetch
// per partition runs concurrently, the batches are joined in partition order
// and a merge step turns them into records.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Batch is the result of fetching one partition.
type Batch[P, B any] struct {
	Partition P
	Data      B
}

// Pipeline describes how a snapshot is built.
type Pipeline[P, B, R any] struct {
	// Name identifies the pipeline in logs.
	Name string
	// Fetch retrieves one partition.
	Fetch func(ctx context.Context, partition P) (B, error)
	// Merge combines the batches, given in partition-list order, into records.
	Merge func(batches []Batch[P, B]) ([]R, error)
	// Limit caps the number of concurrent fetches. Zero means unlimited.
	Limit int
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Build fetches every partition concurrently and merges the results. If any
// fetch fails the whole build fails with the first error and Merge is not
// called, so a partial snapshot is never produced.
func (p Pipeline[P, B, R]) Build(ctx context.Context, partitions []P) ([]R, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.Fetch == nil || p.Merge == nil {
		return nil, fmt.Errorf("pipeline %q requires both Fetch and Merge", p.Name)
	}

	start := time.Now()
	batches := make([]Batch[P, B], len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	if p.Limit > 0 {
		g.SetLimit(p.Limit)
	}
	for i, partition := range partitions {
		g.Go(func() error {
			data, err := p.Fetch(gctx, partition)
			if err != nil {
				return err
			}
			batches[i] = Batch[P, B]{Partition: partition, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("Snapshot build failed", zap.String("pipeline", p.Name), zap.Error(err))
		return nil, err
	}

	records, err := p.Merge(batches)
	if err != nil {
		logger.Warn("Snapshot merge failed", zap.String("pipeline", p.Name), zap.Error(err))
		return nil, err
	}
	logger.Debug("Snapshot built",
		zap.String("pipeline", p.Name),
		zap.Int("partitions", len(partitions)),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}
