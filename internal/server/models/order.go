package models

import "time"

// Order is the persisted form of a placed order. The order contents are
// never stored in clear: SealedData is the authenticated-encryption token
// over the canonical payload, Signature an RSA-PSS signature (base64) over
// the same payload, and TransactionID the reversible text encoding of the
// human-readable transaction id. Delivery columns stay in clear so orders
// remain queryable.
type Order struct {
	ID            int64
	UserID        int64
	SealedData    []byte
	Signature     string
	TransactionID string
	Delivery      DeliveryInfo
	CreatedAt     time.Time
}

// DeliveryInfo is the non-sensitive delivery block kept in clear columns.
type DeliveryInfo struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// Product is the minimal product projection order placement needs:
// ownership for the seller token and stock for validation.
type Product struct {
	ID       int64
	SellerID int64
	Name     string
	Price    float64
	Stock    int64
}

// OrderItem is a single purchased line inside the sealed payload.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}
