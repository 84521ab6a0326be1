package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a configurable hot tub as stored in the catalog.
type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	NameDe        string          `json:"nameDe"`
	NameEn        string          `json:"nameEn"`
	DescriptionDe string          `json:"descriptionDe"`
	DescriptionEn string          `json:"descriptionEn"`
	ImageURL      string          `json:"imageUrl"`
	BasePrice     decimal.Decimal `json:"basePrice"`
	Options       []Option        `json:"options"`
}

// Option is a selectable add-on owned by a Product.
type Option struct {
	ID              string          `json:"id"`
	GroupName       string          `json:"groupName"`
	NameDe          string          `json:"nameDe"`
	NameEn          string          `json:"nameEn"`
	DescriptionDe   string          `json:"descriptionDe"`
	DescriptionEn   string          `json:"descriptionEn"`
	ImageURL        string          `json:"imageUrl"`
	IsRequiredGroup bool            `json:"isRequiredGroup"`
	PriceDelta      decimal.Decimal `json:"priceDelta"`
}

// NewID returns a fresh identifier in the 32 hex character form used on disk.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SameGroup reports whether two group names denote the same option group.
func SameGroup(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Clone returns a deep copy of the product.
func (p Product) Clone() Product {
	out := p
	out.Options = CloneOptions(p.Options)
	return out
}

// CloneOptions copies a slice of options, preserving nil.
func CloneOptions(opts []Option) []Option {
	if opts == nil {
		return nil
	}
	out := make([]Option, len(opts))
	copy(out, opts)
	return out
}

// FindOption returns the index of the option with the given id or -1.
func (p *Product) FindOption(optionID string) int {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return i
		}
	}
	return -1
}

// RequiredGroups lists the distinct group names flagged as required, in first-seen order.
func (p Product) RequiredGroups() []string {
	var groups []string
	for _, o := range p.Options {
		if !o.IsRequiredGroup || strings.TrimSpace(o.GroupName) == "" {
			continue
		}
		seen := false
		for _, g := range groups {
			if SameGroup(g, o.GroupName) {
				seen = true
				break
			}
		}
		if !seen {
			groups = append(groups, o.GroupName)
		}
	}
	return groups
}

// WithFallbacks fills the English fields from the German ones where they are blank,
// the way the admin forms have always stored products.
func (p Product) WithFallbacks() Product {
	if strings.TrimSpace(p.NameEn) == "" {
		p.NameEn = p.NameDe
	}
	if strings.TrimSpace(p.DescriptionEn) == "" {
		p.DescriptionEn = p.DescriptionDe
	}
	return p
}

// WithFallbacks fills the English fields from the German ones where they are blank.
func (o Option) WithFallbacks() Option {
	if strings.TrimSpace(o.NameEn) == "" {
		o.NameEn = o.NameDe
	}
	if strings.TrimSpace(o.DescriptionEn) == "" {
		o.DescriptionEn = o.DescriptionDe
	}
	o.GroupName = strings.TrimSpace(o.GroupName)
	return o
}
