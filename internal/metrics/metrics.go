// Package metrics exposes ledger counters to Prometheus. A nil *Ledger is valid and records
// nothing, which is what the unit tests use.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type Ledger struct {
	movements       *prometheus.CounterVec
	movementAmount  *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	sideEffectDrops *prometheus.CounterVec
}

// New builds the ledger collectors and registers them. Collectors that are already registered
// are reused.
func New(reg prometheus.Registerer) (*Ledger, error) {
	l := &Ledger{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fiado_ledger_movements_total",
			Help: "Balance movements committed, by kind (charge|credit).",
		}, []string{"kind"}),
		movementAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fiado_ledger_movement_amount_total",
			Help: "Sum of committed balance movements, by kind.",
		}, []string{"kind"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fiado_ledger_rejections_total",
			Help: "Ledger operations rejected by a business rule, by reason.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fiado_state_transitions_total",
			Help: "Committed sale and payment state transitions.",
		}, []string{"entity", "to"}),
		sideEffectDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fiado_side_effect_failures_total",
			Help: "Best-effort writes that failed after commit, by target (audit|notify).",
		}, []string{"target"}),
	}

	for _, c := range []**prometheus.CounterVec{
		&l.movements, &l.movementAmount, &l.rejections, &l.transitions, &l.sideEffectDrops,
	} {
		existing, err := register(reg, *c)
		if err != nil {
			return nil, err
		}

		*c = existing
	}

	return l, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}

		return nil, err
	}

	return c, nil
}

func (l *Ledger) Charged(amount decimal.Decimal) {
	l.movement("charge", amount)
}

func (l *Ledger) Credited(amount decimal.Decimal) {
	l.movement("credit", amount)
}

func (l *Ledger) movement(kind string, amount decimal.Decimal) {
	if l == nil {
		return
	}

	l.movements.WithLabelValues(kind).Inc()
	l.movementAmount.WithLabelValues(kind).Add(amount.InexactFloat64())
}

// Rejected counts a business-rule failure such as insufficient_credit. Empty reasons are ignored.
func (l *Ledger) Rejected(reason string) {
	if l == nil || reason == "" {
		return
	}

	l.rejections.WithLabelValues(reason).Inc()
}

func (l *Ledger) Transition(entity, to string) {
	if l == nil {
		return
	}

	l.transitions.WithLabelValues(entity, to).Inc()
}

func (l *Ledger) SideEffectFailed(target string) {
	if l == nil {
		return
	}

	l.sideEffectDrops.WithLabelValues(target).Inc()
}
