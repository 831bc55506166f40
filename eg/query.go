package eg

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/kestrelworks/eventguard-go/guard"
)

type QueryName string

// Query is a stateless, idempotent, tenant-scoped read request.
type Query struct {
	Tenant     TenantID  `json:"tenant_id"`
	Name       QueryName `json:"query_type"`
	Parameters Data      `json:"parameters"`
}

// Signature identifies a query for fallback caching: same tenant, name and
// parameters hit the same cached result.
func (q Query) Signature() string {
	h := fnv.New64a()
	_, _ = h.Write(q.Parameters.Data)

	return fmt.Sprintf("%s/%s/%x", q.Tenant, q.Name, h.Sum64())
}

type QueryResult struct {
	Data  any  `json:"data"`
	Stale bool `json:"stale"`
}

type QueryHandler interface {
	HandleQuery(ctx context.Context, query Query) (any, error)
}

type QueryHandlerFunc func(ctx context.Context, query Query) (any, error)

func (f QueryHandlerFunc) HandleQuery(ctx context.Context, query Query) (any, error) {
	return f(ctx, query)
}

type QueryHandlers map[QueryName]QueryHandler

type QueryServiceOption func(service *QueryService)

func WithFallback(cache *guard.FallbackCache) QueryServiceOption {
	return func(s *QueryService) {
		s.fallback = cache
	}
}

// QueryService is the read pipeline: guarded projection reads with a
// last-known-good fallback. Results served from fallback are flagged stale;
// a fallback miss after a read-path failure is ErrQueryUnavailable.
type QueryService struct {
	handlers QueryHandlers
	guard    *guard.Executor
	fallback *guard.FallbackCache
}

func NewQueryService(handlers QueryHandlers, executor *guard.Executor, options ...QueryServiceOption) *QueryService {
	service := &QueryService{
		handlers: handlers,
		guard:    executor,
	}

	for _, option := range options {
		option(service)
	}

	return service
}

func (s *QueryService) Execute(ctx context.Context, query Query) (QueryResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, fmt.Sprintf("execute query %s", query.Name))
	defer span.End()

	if query.Tenant == "" {
		return QueryResult{}, Invalid("tenant is required")
	}

	handler := s.handlers[query.Name]
	if handler == nil {
		return QueryResult{}, UnknownQueryError{Query: query.Name}
	}

	value, err := guard.Do(ctx, s.guard, func(ctx context.Context) (any, error) {
		return handler.HandleQuery(ctx, query)
	})
	if err == nil {
		if s.fallback != nil {
			s.fallback.Put(query.Signature(), value)
		}

		return QueryResult{Data: value}, nil
	}

	if !fallbackEligible(err) {
		return QueryResult{}, err
	}

	if s.fallback != nil {
		if cached, ok := s.fallback.Get(query.Signature()); ok {
			s.guard.Metrics().RecordFallback()
			return QueryResult{Data: cached.Value, Stale: true}, nil
		}
	}

	return QueryResult{}, errors.Wrap(ErrQueryUnavailable, err.Error())
}

func fallbackEligible(err error) bool {
	var open *guard.CircuitOpenError
	var exhausted *guard.DependencyExhaustedError

	return errors.As(err, &open) || errors.As(err, &exhausted)
}
