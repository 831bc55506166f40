package orders

import (
	"context"

	"github.com/kestrelworks/eventguard-go/eg"
)

func createOrder() eg.CommandHandler[Order] {
	var handler eg.CommandHandlerFunction[Order, CreateOrder] = func(ctx context.Context, cmd CreateOrder, entity eg.Entity[Order]) ([]eg.DomainEvent, error) {
		if cmd.Customer == "" {
			return nil, eg.Invalid("customer is required")
		}
		if entity.Initialized() {
			return nil, eg.Rejected("order %s already exists", entity.Stream.Key)
		}

		return []eg.DomainEvent{OrderCreated{Customer: cmd.Customer}}, nil
	}

	return handler
}

func addItem() eg.CommandHandler[Order] {
	var handler eg.CommandHandlerFunction[Order, AddItem] = func(ctx context.Context, cmd AddItem, entity eg.Entity[Order]) ([]eg.DomainEvent, error) {
		if cmd.SKU == "" {
			return nil, eg.Invalid("sku is required")
		}
		if cmd.Quantity <= 0 {
			return nil, eg.Invalid("quantity must be positive")
		}
		if !entity.Initialized() {
			return nil, eg.Rejected("order %s does not exist", entity.Stream.Key)
		}
		if entity.State.Status != StatusOpen {
			return nil, eg.Rejected("order %s is no longer open", entity.Stream.Key)
		}

		return []eg.DomainEvent{ItemAdded{SKU: cmd.SKU, Quantity: cmd.Quantity, UnitPrice: cmd.UnitPrice}}, nil
	}

	return handler
}

func submitOrder() eg.CommandHandler[Order] {
	var handler eg.CommandHandlerFunction[Order, SubmitOrder] = func(ctx context.Context, cmd SubmitOrder, entity eg.Entity[Order]) ([]eg.DomainEvent, error) {
		if !entity.Initialized() {
			return nil, eg.Rejected("order %s does not exist", entity.Stream.Key)
		}
		if entity.State.Status != StatusOpen {
			return nil, eg.Rejected("order %s is already submitted", entity.Stream.Key)
		}
		if len(entity.State.Items) == 0 {
			return nil, eg.Rejected("order %s has no items", entity.Stream.Key)
		}

		return []eg.DomainEvent{OrderSubmitted{Total: entity.State.Total()}}, nil
	}

	return handler
}

func Handlers() eg.CommandHandlers[Order] {
	return eg.CommandHandlers[Order]{
		CreateOrderCmd: createOrder(),
		AddItemCmd:     addItem(),
		SubmitOrderCmd: submitOrder(),
	}
}
