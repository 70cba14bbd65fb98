// Package notify hands receipt requests to the external mailer. Rendering and delivery happen
// outside this module.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/metrics"
)

const (
	TemplateSaleReceipt    = "sale-receipt"
	TemplatePaymentReceipt = "payment-receipt"
)

type Request struct {
	Recipient  string            `json:"recipient"`
	TemplateID string            `json:"templateId"`
	Variables  map[string]string `json:"variables"`
}

//go:generate mockgen -source=notify.go -destination=notifier_mock.go -package=notify
type Notifier interface {
	Notify(ctx context.Context, req Request) error
}

// Sender wraps a Notifier so callers never fail on notification errors.
type Sender struct {
	n       Notifier
	log     *zap.Logger
	metrics *metrics.Ledger
}

func NewSender(n Notifier, log *zap.Logger, m *metrics.Ledger) *Sender {
	return &Sender{n: n, log: log, metrics: m}
}

// Send skips requests without a recipient.
func (s *Sender) Send(ctx context.Context, req Request) {
	if req.Recipient == "" {
		return
	}

	if err := s.n.Notify(ctx, req); err != nil {
		s.metrics.SideEffectFailed("notify")
		s.log.Warn("failed to queue notification",
			zap.String("template", req.TemplateID),
			zap.String("recipient", req.Recipient),
			zap.Error(err),
		)
	}
}

// LogNotifier only logs requests. Used when no queue is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, req Request) error {
	l.log.Info("notification",
		zap.String("template", req.TemplateID),
		zap.String("recipient", req.Recipient),
		zap.Any("variables", req.Variables),
	)

	return nil
}
