package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fiado/internal/metrics"
)

func TestLedger_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()

	l, err := metrics.New(reg)
	require.NoError(t, err)

	l.Charged(decimal.RequireFromString("80.00"))
	l.Credited(decimal.RequireFromString("30.50"))
	l.Rejected("insufficient_credit")
	l.Transition("sale", "CANCELLED")
	l.SideEffectFailed("audit")

	expected := `
# HELP fiado_ledger_movement_amount_total Sum of committed balance movements, by kind.
# TYPE fiado_ledger_movement_amount_total counter
fiado_ledger_movement_amount_total{kind="charge"} 80
fiado_ledger_movement_amount_total{kind="credit"} 30.5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "fiado_ledger_movement_amount_total"))

	count, err := testutil.GatherAndCount(reg,
		"fiado_ledger_movements_total",
		"fiado_ledger_rejections_total",
		"fiado_state_transitions_total",
		"fiado_side_effect_failures_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestLedger_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := metrics.New(reg)
	require.NoError(t, err)

	second, err := metrics.New(reg)
	require.NoError(t, err)

	first.Rejected("inactive_account")
	second.Rejected("inactive_account")

	count, err := testutil.GatherAndCount(reg, "fiado_ledger_rejections_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLedger_NilIsNoop(t *testing.T) {
	var l *metrics.Ledger

	assert.NotPanics(t, func() {
		l.Charged(decimal.NewFromInt(1))
		l.Rejected("x")
		l.Transition("payment", "APPLIED")
		l.SideEffectFailed("notify")
	})
}
