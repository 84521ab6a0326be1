package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contact is the customer data captured at checkout.
type Contact struct {
	FullName   string `json:"fullName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Street     string `json:"street" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	City       string `json:"city" validate:"required"`
}

// Totals is the VAT split of a gross amount.
type Totals struct {
	Net   decimal.Decimal `json:"netTotal"`
	VAT   decimal.Decimal `json:"vatAmount"`
	Gross decimal.Decimal `json:"grossTotal"`
}

// OrderRecord is an order as kept in a customer's history. It is never modified after it
// has been written.
type OrderRecord struct {
	ID         string          `json:"id"`
	CreatedUTC time.Time       `json:"createdUtc"`
	FullName   string          `json:"fullName"`
	Email      string          `json:"email"`
	Street     string          `json:"street"`
	PostalCode string          `json:"postalCode"`
	City       string          `json:"city"`
	Language   string          `json:"language,omitempty"`
	NetTotal   decimal.Decimal `json:"netTotal"`
	VATAmount  decimal.Decimal `json:"vatAmount"`
	GrossTotal decimal.Decimal `json:"grossTotal"`
	Items      []CartItem      `json:"items"`
}

// NewOrderRecord assembles an order from a cart snapshot. Items are deep-copied.
func NewOrderRecord(contact Contact, items []CartItem, totals Totals, lang string, now time.Time) OrderRecord {
	return OrderRecord{
		ID:         NewID(),
		CreatedUTC: now.UTC(),
		FullName:   contact.FullName,
		Email:      contact.Email,
		Street:     contact.Street,
		PostalCode: contact.PostalCode,
		City:       contact.City,
		Language:   NormalizeLanguage(lang),
		NetTotal:   totals.Net,
		VATAmount:  totals.VAT,
		GrossTotal: totals.Gross,
		Items:      CloneItems(items),
	}
}

// Contact returns the customer data of the order.
func (o OrderRecord) Contact() Contact {
	return Contact{
		FullName:   o.FullName,
		Email:      o.Email,
		Street:     o.Street,
		PostalCode: o.PostalCode,
		City:       o.City,
	}
}
