package orders

const CreateOrderCmd = "order:create"

type CreateOrder struct {
	Customer string `json:"customer"`
}

func (CreateOrder) TypeName() string {
	return CreateOrderCmd
}

const AddItemCmd = "order:add-item"

type AddItem struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (AddItem) TypeName() string {
	return AddItemCmd
}

const SubmitOrderCmd = "order:submit"

type SubmitOrder struct{}

func (SubmitOrder) TypeName() string {
	return SubmitOrderCmd
}
