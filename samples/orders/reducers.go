package orders

import "github.com/kestrelworks/eventguard-go/eg"

func orderCreated() eg.Reducer[Order] {
	var reducer eg.ReducerFunction[Order, OrderCreated] = func(order *Order, evt *OrderCreated) error {
		order.Customer = evt.Customer
		order.Status = StatusOpen
		return nil
	}

	return reducer
}

func itemAdded() eg.Reducer[Order] {
	var reducer eg.ReducerFunction[Order, ItemAdded] = func(order *Order, evt *ItemAdded) error {
		// Full slice expression keeps snapshot copies from sharing a
		// backing array with the live state.
		items := order.Items[:len(order.Items):len(order.Items)]
		order.Items = append(items, Item{SKU: evt.SKU, Quantity: evt.Quantity, UnitPrice: evt.UnitPrice})
		return nil
	}

	return reducer
}

func orderSubmitted() eg.Reducer[Order] {
	var reducer eg.ReducerFunction[Order, OrderSubmitted] = func(order *Order, evt *OrderSubmitted) error {
		order.Status = StatusSubmitted
		return nil
	}

	return reducer
}

func Reducers() eg.Reducers[Order] {
	return eg.Reducers[Order]{
		OrderCreatedEvent:   orderCreated(),
		ItemAddedEvent:      itemAdded(),
		OrderSubmittedEvent: orderSubmitted(),
	}
}
