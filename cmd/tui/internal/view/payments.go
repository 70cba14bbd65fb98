package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fiado/internal/payment"
)

var paymentStateFilters = []*payment.State{nil, new(payment.StatePending), new(payment.StateApplied), new(payment.StateRejected)}

type PaymentsModel struct {
	desk Desk

	table    table.Model
	payments []*payment.Payment
	names    map[uuid.UUID]string

	stateFilterIdx int

	loading bool
	err     error
	status  string
}

func NewPaymentsModel(d Desk) PaymentsModel {
	return PaymentsModel{
		desk: d,
		table: newTable([]table.Column{
			{Title: "Date", Width: 17},
			{Title: "Customer", Width: 24},
			{Title: "Amount", Width: 10},
			{Title: "Method", Width: 9},
			{Title: "State", Width: 9},
			{Title: "Observations", Width: 30},
		}),
		// Pending payments are the ones that need attention.
		stateFilterIdx: 1,
		loading:        true,
	}
}

func (m PaymentsModel) Title() string { return "Payments" }

func (m PaymentsModel) ShortHelp() string {
	return "Esc: back | a: apply | x: reject | o: reopen | s: state filter | r: refresh"
}

func (m PaymentsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m PaymentsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadPaymentsMsg:
		m.loading = false
		m.err = msg.err
		m.payments = msg.payments
		m.names = msg.names
		m.refreshTable()

		return m, nil

	case doneMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "a":
			return m, m.changeStateCmd(payment.StateApplied)
		case "x":
			return m, m.changeStateCmd(payment.StateRejected)
		case "o":
			return m, m.changeStateCmd(payment.StatePending)
		case "s":
			m.stateFilterIdx = cycle(m.stateFilterIdx, len(paymentStateFilters))
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m PaymentsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading payments...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf("Filter: [s] State: %s", activeStyle(filterLabel(paymentStateFilters[m.stateFilterIdx])))

	return lipgloss.NewStyle().Padding(1).Render(frame(header, m.table, m.status))
}

func (m *PaymentsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.payments))
	for _, p := range m.payments {
		rows = append(rows, table.Row{
			FormatDate(p.CreatedAt),
			m.names[p.AccountID],
			FormatAmount(p.Amount),
			string(p.Method),
			string(p.State),
			p.Observations,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadPaymentsMsg struct {
	payments []*payment.Payment
	names    map[uuid.UUID]string
	err      error
}

func (m PaymentsModel) loadCmd() tea.Cmd {
	d := m.desk
	filter := payment.ListFilter{State: paymentStateFilters[m.stateFilterIdx]}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		names, err := accountNames(ctx, d)
		if err != nil {
			return loadPaymentsMsg{err: err}
		}

		payments, err := d.Payments.ListByStore(ctx, d.ID, d.StoreID, filter)

		return loadPaymentsMsg{payments: payments, names: names, err: err}
	}
}

func (m PaymentsModel) changeStateCmd(to payment.State) tea.Cmd {
	p, ok := selected(m.table, m.payments)
	if !ok {
		return nil
	}

	d := m.desk

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		updated, err := d.Payments.ChangeState(ctx, d.ID, p.ID, to)
		if err != nil {
			return doneMsg{err: err}
		}

		return doneMsg{status: fmt.Sprintf("Payment of %s is now %s", FormatAmount(updated.Amount), updated.State)}
	}
}
