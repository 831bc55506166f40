package orders

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/kestrelworks/eventguard-go/eg"
)

const SummaryQuery = "order:summary"
const ListOrdersQuery = "order:list"

type Summary struct {
	OrderID   string       `json:"order_id"`
	Customer  string       `json:"customer"`
	Status    string       `json:"status"`
	Items     int          `json:"items"`
	Total     int64        `json:"total"`
	Version   eg.Version   `json:"version"`
	UpdatedAt eg.Timestamp `json:"updated_at"`
}

// Summaries is the order read model: one row per order, tenant-scoped,
// upserted in place. The version check makes redelivered events no-ops, so
// Apply is naturally idempotent.
type Summaries struct {
	mu      sync.RWMutex
	tenants map[eg.TenantID]map[string]Summary
}

func NewSummaries() *Summaries {
	return &Summaries{
		tenants: make(map[eg.TenantID]map[string]Summary),
	}
}

func (s *Summaries) Name() string {
	return "order-summaries"
}

func (s *Summaries) Apply(_ context.Context, event eg.RecordedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tenants[event.Stream.Tenant]
	if !ok {
		rows = make(map[string]Summary)
		s.tenants[event.Stream.Tenant] = rows
	}

	row := rows[event.Stream.Key]
	if event.Version <= row.Version {
		return nil
	}

	switch event.EventType {
	case OrderCreatedEvent:
		var evt OrderCreated
		if err := eg.UnmarshalFromData(event.Data, &evt); err != nil {
			return err
		}
		row.OrderID = event.Stream.Key
		row.Customer = evt.Customer
		row.Status = StatusOpen
	case ItemAddedEvent:
		var evt ItemAdded
		if err := eg.UnmarshalFromData(event.Data, &evt); err != nil {
			return err
		}
		row.Items++
		row.Total += int64(evt.Quantity) * evt.UnitPrice
	case OrderSubmittedEvent:
		var evt OrderSubmitted
		if err := eg.UnmarshalFromData(event.Data, &evt); err != nil {
			return err
		}
		row.Status = StatusSubmitted
		row.Total = evt.Total
	default:
		return nil
	}

	row.Version = event.Version
	row.UpdatedAt = event.Timestamp
	rows[event.Stream.Key] = row

	return nil
}

type SummaryParams struct {
	OrderID string `json:"order_id"`
}

func (s *Summaries) QueryHandlers() eg.QueryHandlers {
	return eg.QueryHandlers{
		SummaryQuery:    eg.QueryHandlerFunc(s.summary),
		ListOrdersQuery: eg.QueryHandlerFunc(s.list),
	}
}

func (s *Summaries) summary(_ context.Context, query eg.Query) (any, error) {
	var params SummaryParams
	if err := eg.UnmarshalFromData(query.Parameters, &params); err != nil {
		return nil, eg.Invalid("malformed parameters: %v", err)
	}
	if params.OrderID == "" {
		return nil, eg.Invalid("order_id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.tenants[query.Tenant][params.OrderID]
	if !ok {
		return nil, errors.Wrap(eg.ErrAggregateNotFound, params.OrderID)
	}

	return row, nil
}

func (s *Summaries) list(_ context.Context, query eg.Query) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]Summary, 0, len(s.tenants[query.Tenant]))
	for _, row := range s.tenants[query.Tenant] {
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].OrderID < rows[j].OrderID
	})

	return rows, nil
}
