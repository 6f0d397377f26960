package coreapi

import (
	"context"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/query"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

// ResultPage is one page of a search, the facade's answer to QueryService
// run()'s ResultPage return type.
type ResultPage struct {
	Rows   []catalog.FileRecord
	Total  int64
	Offset int
	Limit  int
}

// QueryService is the UI-facing facade over the query engine's result
// cache. Filters and field terms aren't a separate parameter: the search
// language already folds ext:/path:/size:/cloud:/status: terms into the
// query text itself (internal/query/parser.go), so there's nothing left
// for a distinct "filters" argument to carry. cancel_token is ctx, the
// same substitution the rest of this module makes throughout.
type QueryService struct {
	cache *query.Cache
}

// NewQueryService creates a service bound to cache.
func NewQueryService(cache *query.Cache) *QueryService {
	return &QueryService{cache: cache}
}

// Run executes queryText and returns the requested page of rows plus the
// total match count.
func (s *QueryService) Run(ctx context.Context, queryText string, sort []query.SortKey, offset, limit int) (ResultPage, error) {
	rs, err := s.cache.Search(ctx, queryText, sort)
	if err != nil {
		return ResultPage{}, err
	}

	rows, err := rs.GetPage(ctx, offset, limit)
	if err != nil {
		return ResultPage{}, err
	}

	total, err := rs.Total(ctx)
	if err != nil {
		return ResultPage{}, err
	}

	return ResultPage{Rows: rows, Total: total, Offset: offset, Limit: limit}, nil
}

// OnResultsInvalidated subscribes h to the query engine's
// ResultsInvalidated(scope) event, returning an unsubscribe function.
func OnResultsInvalidated(bus *runtime.EventBus, h func(scope []string)) func() {
	return bus.Subscribe(query.TopicResultsInvalidated, runtime.PriorityNormal,
		func(_ context.Context, _ string, ev runtime.Event) {
			if inv, ok := ev.(query.ResultsInvalidated); ok {
				h(inv.Scope)
			}
		})
}
