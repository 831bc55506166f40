// Package orders is the reference domain: a small order aggregate with a
// summary read model, exercising the command, projection and query
// pipelines end to end.
package orders

import (
	"github.com/kestrelworks/eventguard-go/eg"
)

const AggregateType = "order"

const (
	StatusOpen      = "open"
	StatusSubmitted = "submitted"
)

type Item struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type Order struct {
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Items    []Item `json:"items"`
}

func (Order) EntityType() eg.EntityType {
	return AggregateType
}

func (o *Order) Total() int64 {
	var total int64
	for _, item := range o.Items {
		total += int64(item.Quantity) * item.UnitPrice
	}

	return total
}
