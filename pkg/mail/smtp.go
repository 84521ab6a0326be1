package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/hottubshop/pkg/config"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("mail delivery is not configured (mail.host / mail.from_address)")

// SMTPSender delivers messages through the SMTP relay in the mail config section.
type SMTPSender struct {
	cfg    *config.MailConfig
	logger *zap.Logger
}

func NewSMTPSender(cfg *config.MailConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

func (s *SMTPSender) client() (*gomail.Client, error) {
	opts := []gomail.Option{gomail.WithPort(s.cfg.Port)}
	if s.cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(s.cfg.Timeout))
	}
	if s.cfg.EnableSSL {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if s.cfg.UserName != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.UserName),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	return gomail.NewClient(s.cfg.Host, opts...)
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(s.cfg.Host) == "" || strings.TrimSpace(s.cfg.FromAddress) == "" {
		return ErrNotConfigured
	}

	m := gomail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	c, err := s.client()
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		s.logger.Error("Failed to send mail",
			zap.String("host", s.cfg.Host),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send mail: %w", err)
	}

	s.logger.Info("Mail sent", zap.String("subject", msg.Subject))
	return nil
}
