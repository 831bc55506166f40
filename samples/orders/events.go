package orders

import "github.com/kestrelworks/eventguard-go/eg"

var OrderCreatedEvent = eg.EventType("order:created")

type OrderCreated struct {
	Customer string `json:"customer"`
}

func (OrderCreated) TypeName() string {
	return OrderCreatedEvent.String()
}

var ItemAddedEvent = eg.EventType("order:item-added")

type ItemAdded struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (ItemAdded) TypeName() string {
	return ItemAddedEvent.String()
}

var OrderSubmittedEvent = eg.EventType("order:submitted")

type OrderSubmitted struct {
	Total int64 `json:"total"`
}

func (OrderSubmitted) TypeName() string {
	return OrderSubmittedEvent.String()
}
