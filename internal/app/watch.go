package app

import (
	"context"

	"github.com/sadopc/cumpli/internal/query"
	"github.com/sadopc/cumpli/internal/stats"
	"github.com/sadopc/cumpli/internal/store"
)

// NewListEngine returns the filtered pending list for one screen.
func (s *Service) NewListEngine(ctx context.Context) *query.Engine {
	return query.NewEngine(ctx, s.store)
}

func (s *Service) WatchCompleted(ctx context.Context) <-chan query.Result[[]store.Activity] {
	return query.Watch(ctx, s.store, s.store.ListCompleted)
}

func (s *Service) WatchPendingCount(ctx context.Context) <-chan query.Result[int] {
	return query.Watch(ctx, s.store, s.store.CountPending)
}

func (s *Service) WatchCategoryCounts(ctx context.Context) <-chan query.Result[map[store.Category]int] {
	return query.Watch(ctx, s.store, s.store.CountPendingByCategory)
}

func (s *Service) WatchPreferences(ctx context.Context) <-chan query.Result[store.Preferences] {
	return query.Watch(ctx, s.store, s.store.GetPreferences)
}

// WatchStats recomputes the summary from both lists after every change.
func (s *Service) WatchStats(ctx context.Context) <-chan query.Result[stats.Summary] {
	return query.Watch(ctx, s.store, s.Stats)
}

func (s *Service) Stats(ctx context.Context) (stats.Summary, error) {
	pending, err := s.store.ListPending(ctx, store.PendingQuery{})
	if err != nil {
		return stats.Summary{}, err
	}
	completed, err := s.store.ListCompleted(ctx)
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Compute(pending, completed), nil
}
