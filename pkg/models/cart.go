package models

import "github.com/shopspring/decimal"

// CartItem is a snapshot of a configured product taken when it was added to the cart.
// Later catalog edits never reach an existing snapshot.
type CartItem struct {
	ProductID          string          `json:"productId"`
	ProductName        string          `json:"productName"`
	ProductDescription string          `json:"productDescription"`
	ProductImageURL    string          `json:"productImageUrl"`
	BasePrice          decimal.Decimal `json:"basePrice"`
	SelectedOptions    []Option        `json:"selectedOptions"`
}

// Total is the base price plus every selected option delta.
func (c CartItem) Total() decimal.Decimal {
	total := c.BasePrice
	for _, o := range c.SelectedOptions {
		total = total.Add(o.PriceDelta)
	}
	return total
}

// Clone returns a deep copy of the item.
func (c CartItem) Clone() CartItem {
	out := c
	out.SelectedOptions = CloneOptions(c.SelectedOptions)
	return out
}

// NewCartItem snapshots product with the given options in the requested language.
func NewCartItem(p Product, selected []Option, lang string) CartItem {
	return CartItem{
		ProductID:          p.ID,
		ProductName:        p.LocalizedName(lang),
		ProductDescription: p.LocalizedDescription(lang),
		ProductImageURL:    p.ImageURL,
		BasePrice:          p.BasePrice,
		SelectedOptions:    CloneOptions(selected),
	}
}

// CloneItems deep-copies a cart. The result is never nil.
func CloneItems(items []CartItem) []CartItem {
	out := make([]CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, it.Clone())
	}
	return out
}

// CartTotal sums the totals of all items.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total())
	}
	return total
}
