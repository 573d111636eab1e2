package model

// LineItem is one product entry in a cart or order. Identity is ProductRef;
// a cart never holds two line items with the same ProductRef.
type LineItem struct {
	ProductRef string `json:"productRef" db:"product_ref"`
	Name       string `json:"name" db:"name"`
	UnitPrice  int64  `json:"unitPrice" db:"unit_price"`
	Quantity   int    `json:"quantity" db:"quantity"`
	ImageRef   string `json:"imageRef,omitempty" db:"image_ref"`
}

// ShippingAddress holds the delivery details collected during checkout.
type ShippingAddress struct {
	FullName    string `json:"fullName"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
}

// Validate checks the non-emptiness constraints on the address.
func (a ShippingAddress) Validate() error {
	if a.FullName == "" || a.Address == "" {
		return ErrMissingAddress
	}
	return nil
}

// PaymentMethod is the payment option selected during checkout.
type PaymentMethod string

const (
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentEWallet        PaymentMethod = "e_wallet"
)

// Valid reports whether the payment method is one of the supported options.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentBankTransfer, PaymentCashOnDelivery, PaymentEWallet:
		return true
	}
	return false
}

// Cart is the mutable, session-scoped collection of selected products plus the
// shipping and payment selections made so far.
type Cart struct {
	Items           []LineItem       `json:"items"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod   PaymentMethod    `json:"paymentMethod,omitempty"`
}

// FindItem returns the index of the line item with the given product ref, or -1.
func (c *Cart) FindItem(productRef string) int {
	for i := range c.Items {
		if c.Items[i].ProductRef == productRef {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the cart, safe to hand to callers.
func (c *Cart) Clone() Cart {
	out := Cart{PaymentMethod: c.PaymentMethod}
	if len(c.Items) > 0 {
		out.Items = make([]LineItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	if c.ShippingAddress != nil {
		addr := *c.ShippingAddress
		out.ShippingAddress = &addr
	}
	return out
}

// CatalogSnapshot is the price and stock information the catalogue service
// reports for a product at the moment an item is added to the cart.
type CatalogSnapshot struct {
	ProductRef string `json:"productRef"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unitPrice"`
	Stock      int    `json:"stock"`
	ImageRef   string `json:"imageRef,omitempty"`
}
