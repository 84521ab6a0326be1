// Package checkout prices a cart and turns it into a submitted order.
//
// A submission walks Draft -> Validating -> {Rejected, MailPending} -> {MailFailed, Committed}.
// The confirmation mail is the commit point: nothing is persisted before it has been sent,
// and the cart is only cleared once the order is in the customer's history.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/example/hottubshop/pkg/cart"
	"github.com/example/hottubshop/pkg/mail"
	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/repository"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type State int

const (
	Draft State = iota
	Validating
	Rejected
	MailPending
	MailFailed
	Committed
)

func (s State) String() string {
	switch s {
	case Draft:
		return "draft"
	case Validating:
		return "validating"
	case Rejected:
		return "rejected"
	case MailPending:
		return "mail_pending"
	case MailFailed:
		return "mail_failed"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CartStore is the part of the cart service checkout needs.
type CartStore interface {
	GetCart(ctx context.Context, owner cart.Owner) ([]models.CartItem, error)
	Clear(ctx context.Context, owner cart.Owner) error
}

// OrderStore appends to the order history of an owner key.
type OrderStore interface {
	AppendOrder(ctx context.Context, ownerKey string, record models.OrderRecord) error
}

// Auditor records business events. Failures are logged and otherwise ignored.
type Auditor interface {
	Record(ctx context.Context, action repository.AuditAction, entityID, ownerKey string, data map[string]interface{}) error
}

// Request is one submission of the checkout form.
type Request struct {
	Owner            cart.Owner
	Contact          models.Contact
	AcceptTerms      bool
	AcceptWithdrawal bool
	Language         string
}

// Result describes where a submission ended.
type Result struct {
	State State
	// FieldErrors is keyed by form field. The empty key holds form level messages.
	FieldErrors map[string]string
	FormError   string
	Totals      models.Totals
	Order       *models.OrderRecord
	// HistoryError is set when the mail went out but the order could not be added to the
	// customer's history. The cart is kept in that case.
	HistoryError error
}

type Service struct {
	carts    CartStore
	orders   OrderStore
	mailer   mail.Sender
	vatRate  decimal.Decimal
	validate *validator.Validate
	logger   *zap.Logger
	auditor  Auditor
	metrics  *Metrics
	now      func() time.Time
}

type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(carts CartStore, orders OrderStore, mailer mail.Sender, vatRate decimal.Decimal, logger *zap.Logger, opts ...Option) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	s := &Service{
		carts:    carts,
		orders:   orders,
		mailer:   mailer,
		vatRate:  vatRate,
		validate: v,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote prices the current cart of owner.
func (s *Service) Quote(ctx context.Context, owner cart.Owner) ([]models.CartItem, models.Totals, error) {
	items, err := s.carts.GetCart(ctx, owner)
	if err != nil {
		return nil, models.Totals{}, err
	}
	return items, ComputeTotals(items, s.vatRate), nil
}

// Submit runs one checkout attempt. The returned error mirrors the result: a
// *models.ValidationError when Rejected, models.ErrMailDispatchFailed when MailFailed.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	res, err := s.submit(ctx, req)
	s.metrics.observe(res)
	return res, err
}

func (s *Service) submit(ctx context.Context, req Request) (Result, error) {
	lang := models.NormalizeLanguage(req.Language)

	items, totals, err := s.Quote(ctx, req.Owner)
	if err != nil {
		s.logger.Error("Failed to load cart for checkout", zap.Error(err))
		return Result{State: Draft, FormError: err.Error()}, err
	}
	res := Result{State: Validating, Totals: totals}

	if verr := s.check(req, items); verr != nil {
		res.State = Rejected
		res.FieldErrors = verr.Fields
		return res, verr
	}

	res.State = MailPending
	if err := ctx.Err(); err != nil {
		res.State = Draft
		res.FormError = err.Error()
		return res, err
	}

	order := models.NewOrderRecord(req.Contact, items, totals, lang, s.now())
	if err := s.mailer.Send(ctx, mail.Compose(order, lang)); err != nil {
		s.logger.Error("Failed to send order mail",
			zap.String("order_id", order.ID),
			zap.Error(err))
		res.State = MailFailed
		res.FormError = err.Error()
		return res, fmt.Errorf("%w: %v", models.ErrMailDispatchFailed, err)
	}

	res.State = Committed
	res.Order = &order

	if req.Owner.Authenticated() {
		if err := s.orders.AppendOrder(ctx, req.Owner.Key(), order); err != nil {
			s.logger.Warn("Order mailed but not added to history, keeping cart",
				zap.String("order_id", order.ID),
				zap.String("owner", req.Owner.Key()),
				zap.Error(err))
			res.HistoryError = err
			s.audit(ctx, repository.ActionOrderCommitted, order, req)
			return res, nil
		}
	}

	if err := s.carts.Clear(ctx, req.Owner); err != nil {
		s.logger.Warn("Failed to clear cart after checkout",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	s.logger.Info("Order committed",
		zap.String("order_id", order.ID),
		zap.String("gross", order.GrossTotal.StringFixed(2)),
		zap.Int("items", len(order.Items)))
	s.audit(ctx, repository.ActionOrderCommitted, order, req)
	return res, nil
}

func (s *Service) check(req Request, items []models.CartItem) *models.ValidationError {
	verr := models.NewValidationError()
	if len(items) == 0 {
		verr.Add("", "cart is empty")
	}

	if err := s.validate.Struct(req.Contact); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			verr.Add("", err.Error())
		}
		for _, fe := range fields {
			verr.Add(fe.Field(), fieldMessage(fe.Tag()))
		}
	}

	if !req.AcceptTerms {
		verr.Add("acceptTerms", "terms must be accepted")
	}
	if !req.AcceptWithdrawal {
		verr.Add("acceptWithdrawal", "withdrawal policy must be accepted")
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

func fieldMessage(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "invalid email address"
	default:
		return "invalid"
	}
}

func (s *Service) audit(ctx context.Context, action repository.AuditAction, order models.OrderRecord, req Request) {
	if s.auditor == nil {
		return
	}
	data := map[string]interface{}{
		"gross":         order.GrossTotal.StringFixed(2),
		"items":         len(order.Items),
		"language":      order.Language,
	}
	var ownerKey string
	if req.Owner.Authenticated() {
		ownerKey = req.Owner.Key()
	}
	if err := s.auditor.Record(ctx, action, order.ID, ownerKey, data); err != nil {
		s.logger.Warn("Failed to record audit entry", zap.String("action", string(action)), zap.Error(err))
	}
}
