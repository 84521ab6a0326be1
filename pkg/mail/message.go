// Package mail composes and sends order confirmation mails.
package mail

import (
	"context"
	"strings"

	"github.com/example/hottubshop/pkg/models"
	"github.com/shopspring/decimal"
)

// Message is a plain text mail to a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message. Implementations must abort when ctx is cancelled.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

const separator = "------------------------------------------------------------"

// Subject returns the confirmation subject in lang.
func Subject(lang string) string {
	if models.NormalizeLanguage(lang) == models.LangEn {
		return "Your order request at hottub-shop24"
	}
	return "Ihre Bestellanfrage bei hottub-shop24"
}

// Compose renders the confirmation mail for order in lang.
func Compose(order models.OrderRecord, lang string) Message {
	lang = models.NormalizeLanguage(lang)
	t := func(de, en string) string {
		if lang == models.LangEn {
			return en
		}
		return de
	}
	eur := func(d decimal.Decimal) string {
		return models.FormatMoney(d, lang) + " EUR"
	}

	var b strings.Builder
	line := func(parts ...string) {
		for _, p := range parts {
			b.WriteString(p)
		}
		b.WriteByte('\n')
	}

	line(t("Vielen Dank für Ihre Bestellanfrage.", "Thank you for your order request."))
	line()
	line(t("Bestellzusammenfassung:", "Order summary:"))
	line(separator)

	for _, item := range order.Items {
		line(item.ProductName)
		if desc := StripHTML(item.ProductDescription); desc != "" {
			line(desc)
		}
		line(t("Basispreis", "Base price"), ": ", eur(item.BasePrice))
		for _, opt := range item.SelectedOptions {
			line("  - ", opt.LocalizedName(lang), " (+", eur(opt.PriceDelta), ")")
			if desc := StripHTML(opt.LocalizedDescription(lang)); desc != "" {
				line("    ", desc)
			}
		}
		line(t("Positionssumme", "Item total"), ": ", eur(item.Total()))
		line()
	}

	line(t("Netto", "Net total"), ": ", eur(order.NetTotal))
	line(t("MwSt. (19%)", "VAT (19%)"), ": ", eur(order.VATAmount))
	line(t("Brutto", "Gross total"), ": ", eur(order.GrossTotal))
	line()
	line(t("Kundendaten:", "Customer data:"))
	line(order.FullName)
	line(order.Street)
	line(order.PostalCode, " ", order.City)
	line(order.Email)

	return Message{
		To:      order.Email,
		Subject: Subject(lang),
		Body:    b.String(),
	}
}

// StripHTML drops everything between angle brackets and trims the result.
func StripHTML(s string) string {
	var b strings.Builder
	inside := false
	for _, r := range s {
		switch {
		case r == '<':
			inside = true
		case r == '>':
			inside = false
		case !inside:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
