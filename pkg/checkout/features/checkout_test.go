package features

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/example/hottubshop/pkg/cart"
	"github.com/example/hottubshop/pkg/checkout"
	"github.com/example/hottubshop/pkg/mail"
	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/repository"
	"github.com/example/hottubshop/pkg/session"
	"github.com/example/hottubshop/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type checkoutTestContext struct {
	carts    *cart.Service
	orders   *repository.OrderRepository
	owner    cart.Owner
	sent     []mail.Message
	mailDown bool
	result   checkout.Result
	err      error
}

func (c *checkoutTestContext) reset() {
	files := storage.New(afero.NewMemMapFs())
	c.carts = cart.NewService(repository.NewCartRepository(files, zap.NewNop()), zap.NewNop())
	c.orders = repository.NewOrderRepository(files, zap.NewNop())
	c.owner = cart.Owner{}
	c.sent = nil
	c.mailDown = false
	c.result = checkout.Result{}
	c.err = nil
}

func (c *checkoutTestContext) service() *checkout.Service {
	mailer := mail.SenderFunc(func(_ context.Context, msg mail.Message) error {
		if c.mailDown {
			return errors.New("connection refused")
		}
		c.sent = append(c.sent, msg)
		return nil
	})
	return checkout.NewService(c.carts, c.orders, mailer, checkout.DefaultVATRate, zap.NewNop())
}

func (c *checkoutTestContext) aSignedInCustomer(userID string) error {
	c.owner = cart.Owner{UserID: userID, Session: session.NewMemoryStore().Open("sid")}
	return nil
}

func (c *checkoutTestContext) theCartContainsAnItemWithOptions(base, deltas string) error {
	item := models.CartItem{ProductID: models.NewID(), ProductName: "Tub", SelectedOptions: []models.Option{}}
	var err error
	if item.BasePrice, err = decimal.NewFromString(base); err != nil {
		return err
	}
	if deltas != "" {
		for _, raw := range strings.Split(deltas, ",") {
			d, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			item.SelectedOptions = append(item.SelectedOptions, models.Option{ID: models.NewID(), PriceDelta: d})
		}
	}
	return c.carts.Add(context.Background(), c.owner, item)
}

func (c *checkoutTestContext) theCartContainsAnItem(base string) error {
	return c.theCartContainsAnItemWithOptions(base, "")
}

func (c *checkoutTestContext) theMailRelayIsDown() error {
	c.mailDown = true
	return nil
}

func (c *checkoutTestContext) totals() (models.Totals, error) {
	_, totals, err := c.service().Quote(context.Background(), c.owner)
	return totals, err
}

func expectAmount(name string, got decimal.Decimal, want string) error {
	if got.StringFixed(2) != want {
		return fmt.Errorf("expected %s %s, got %s", name, want, got.StringFixed(2))
	}
	return nil
}

func (c *checkoutTestContext) theGrossTotalIs(want string) error {
	t, err := c.totals()
	if err != nil {
		return err
	}
	return expectAmount("gross", t.Gross, want)
}

func (c *checkoutTestContext) theNetTotalIs(want string) error {
	t, err := c.totals()
	if err != nil {
		return err
	}
	return expectAmount("net", t.Net, want)
}

func (c *checkoutTestContext) theVATAmountIs(want string) error {
	t, err := c.totals()
	if err != nil {
		return err
	}
	return expectAmount("vat", t.VAT, want)
}

func (c *checkoutTestContext) submit(acceptTerms bool) {
	c.result, c.err = c.service().Submit(context.Background(), checkout.Request{
		Owner: c.owner,
		Contact: models.Contact{
			FullName:   "Erika Muster",
			Email:      "erika@example.com",
			Street:     "Hauptstr. 1",
			PostalCode: "12345",
			City:       "Berlin",
		},
		AcceptTerms:      acceptTerms,
		AcceptWithdrawal: true,
		Language:         "de",
	})
}

func (c *checkoutTestContext) theCustomerSubmitsValid() error {
	c.submit(true)
	return nil
}

func (c *checkoutTestContext) theCustomerSubmitsWithoutTerms() error {
	c.submit(false)
	return nil
}

func (c *checkoutTestContext) theCheckoutEndsInState(state string) error {
	if c.result.State.String() != state {
		return fmt.Errorf("expected state %s, got %s (err: %v)", state, c.result.State, c.err)
	}
	return nil
}

func (c *checkoutTestContext) theErrorIsAValidationError() error {
	if !errors.Is(c.err, models.ErrValidationFailed) {
		return fmt.Errorf("expected validation error, got %v", c.err)
	}
	return nil
}

func (c *checkoutTestContext) theErrorIsAMailDispatchError() error {
	if !errors.Is(c.err, models.ErrMailDispatchFailed) {
		return fmt.Errorf("expected mail dispatch error, got %v", c.err)
	}
	return nil
}

func (c *checkoutTestContext) theFieldHasAnError(field string) error {
	if _, ok := c.result.FieldErrors[field]; !ok {
		return fmt.Errorf("expected an error for %q, got %v", field, c.result.FieldErrors)
	}
	return nil
}

func (c *checkoutTestContext) theCartHolds(n int) error {
	items, err := c.carts.GetCart(context.Background(), c.owner)
	if err != nil {
		return err
	}
	if len(items) != n {
		return fmt.Errorf("expected %d cart items, got %d", n, len(items))
	}
	return nil
}

func (c *checkoutTestContext) theOrderHistoryHolds(n int) error {
	orders, err := c.orders.ListOrders(context.Background(), c.owner.Key())
	if err != nil {
		return err
	}
	if len(orders) != n {
		return fmt.Errorf("expected %d orders, got %d", n, len(orders))
	}
	return nil
}

func (c *checkoutTestContext) theNewestOrderHasGrossTotal(want string) error {
	orders, err := c.orders.ListOrders(context.Background(), c.owner.Key())
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return errors.New("order history is empty")
	}
	return expectAmount("gross", orders[0].GrossTotal, want)
}

func (c *checkoutTestContext) noMailWasSent() error {
	if len(c.sent) != 0 {
		return fmt.Errorf("expected no mail, got %d", len(c.sent))
	}
	return nil
}

func (c *checkoutTestContext) mailsWereSentTo(n int, to string) error {
	if len(c.sent) != n {
		return fmt.Errorf("expected %d mails, got %d", n, len(c.sent))
	}
	for _, m := range c.sent {
		if m.To != to {
			return fmt.Errorf("expected recipient %s, got %s", to, m.To)
		}
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a signed in customer "([^"]*)"$`, tc.aSignedInCustomer)
	ctx.Step(`^the cart contains an item with base price (\d+(?:\.\d+)?) and options ([\d., ]+)$`, tc.theCartContainsAnItemWithOptions)
	ctx.Step(`^the cart contains an item with base price (\d+(?:\.\d+)?)$`, tc.theCartContainsAnItem)
	ctx.Step(`^the mail relay is down$`, tc.theMailRelayIsDown)

	// When steps
	ctx.Step(`^the customer submits the checkout with valid contact data and both consents$`, tc.theCustomerSubmitsValid)
	ctx.Step(`^the customer submits the checkout without accepting the terms$`, tc.theCustomerSubmitsWithoutTerms)

	// Then steps
	ctx.Step(`^the gross total is "([^"]*)"$`, tc.theGrossTotalIs)
	ctx.Step(`^the net total is "([^"]*)"$`, tc.theNetTotalIs)
	ctx.Step(`^the VAT amount is "([^"]*)"$`, tc.theVATAmountIs)
	ctx.Step(`^the checkout ends in state "([^"]*)"$`, tc.theCheckoutEndsInState)
	ctx.Step(`^the error is a validation error$`, tc.theErrorIsAValidationError)
	ctx.Step(`^the error is a mail dispatch error$`, tc.theErrorIsAMailDispatchError)
	ctx.Step(`^the field "([^"]*)" has an error$`, tc.theFieldHasAnError)
	ctx.Step(`^the cart holds (\d+) items$`, tc.theCartHolds)
	ctx.Step(`^the order history holds (\d+) orders$`, tc.theOrderHistoryHolds)
	ctx.Step(`^the newest order has gross total "([^"]*)"$`, tc.theNewestOrderHasGrossTotal)
	ctx.Step(`^no mail was sent$`, tc.noMailWasSent)
	ctx.Step(`^(\d+) mail was sent to "([^"]*)"$`, tc.mailsWereSentTo)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
