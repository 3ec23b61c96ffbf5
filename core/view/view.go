// Package view ties a record model, its snapshot cache and the pipeline that
// builds it into a queryable collection.
package view

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/asaidimu/go-ninja/core"
	"github.com/asaidimu/go-ninja/core/cache"
	"github.com/asaidimu/go-ninja/core/query"
	"github.com/asaidimu/go-ninja/core/schema"
	"go.uber.org/zap"
)

// Source builds a fresh snapshot for one league.
type Source[R any] func(ctx context.Context, league string) ([]R, error)

// View is a read-only, filterable and sortable collection of records of type R.
type View[R any] struct {
	Model         *schema.Model[R]
	Cache         *cache.Cache[[]R]
	Source        Source[R]
	DefaultLeague string
	// Leagues lists the leagues that may be queried. Empty allows any league.
	Leagues []string
	// TTL overrides the cache default when positive.
	TTL    time.Duration
	Logger *zap.Logger
}

// Name returns the collection name, used as the cache key prefix.
func (v *View[R]) Name() string { return v.Model.Name() }

// League resolves the league a request addresses. A league outside Leagues is
// reported as a validation error on path "league".
func (v *View[R]) League(league string) (string, error) {
	if league == "" {
		league = v.DefaultLeague
	}
	if len(v.Leagues) > 0 && !slices.Contains(v.Leagues, league) {
		return "", core.NewValidationError([]schema.Issue{{
			Code:     schema.IssueUnknownLeague,
			Message:  fmt.Sprintf("unknown league %q (allowed: %s)", league, strings.Join(v.Leagues, ", ")),
			Path:     "league",
			Severity: "error",
		}})
	}
	return league, nil
}

// Query validates q, obtains the league's snapshot from the cache, refreshing
// it when stale, and returns the filtered and ordered records. Validation
// happens before any fetch. A refresh started here keeps running even if ctx
// is cancelled; only the caller stops waiting for it.
func (v *View[R]) Query(ctx context.Context, league string, q query.Query) ([]R, error) {
	league, leagueErr := v.League(league)
	plan, err := query.Prepare(v.Model, q)
	if err := mergeIssues(leagueErr, err); err != nil {
		return nil, err
	}

	records, err := v.Snapshot(ctx, league)
	if err != nil {
		return nil, err
	}
	return plan.Run(records), nil
}

// Snapshot returns the league's full record set without filtering.
func (v *View[R]) Snapshot(ctx context.Context, league string) ([]R, error) {
	league, err := v.League(league)
	if err != nil {
		return nil, err
	}
	key := cache.Key(v.Name(), league)

	type result struct {
		records []R
		err     error
	}
	done := make(chan result, 1)
	go func() {
		records, err := v.Cache.GetOrRefresh(context.WithoutCancel(ctx), key, v.TTL, func(ctx context.Context) ([]R, error) {
			v.logger().Info("Building snapshot", zap.String("collection", v.Name()), zap.String("league", league))
			return v.Source(ctx, league)
		})
		done <- result{records: records, err: err}
	}()

	select {
	case r := <-done:
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// mergeIssues folds validation errors into one. Any other error is returned
// as is.
func mergeIssues(errs ...error) error {
	var issues []schema.Issue
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		issues = append(issues, verr.Issues...)
	}
	if len(issues) == 0 {
		return nil
	}
	return core.NewValidationError(issues)
}

func (v *View[R]) logger() *zap.Logger {
	if v.Logger == nil {
		return zap.NewNop()
	}
	return v.Logger
}
