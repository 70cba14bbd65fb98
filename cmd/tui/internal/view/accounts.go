package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
)

type accountsState int

const (
	accountsStateBrowse accountsState = iota
	accountsStateLimit
	accountsStatePayment
)

type AccountsModel struct {
	desk Desk

	state    accountsState
	table    table.Model
	accounts []*account.Account
	form     *huh.Form

	loading bool
	err     error
	status  string

	// in outlives the model copies bubbletea makes, so the form can bind to it.
	in *accountsInput
}

type accountsInput struct {
	limit  string
	amount string
	method payment.Method
	state  payment.State
	obs    string
}

func NewAccountsModel(d Desk) AccountsModel {
	return AccountsModel{
		desk: d,
		table: newTable([]table.Column{
			{Title: "Customer", Width: 24},
			{Title: "Email", Width: 28},
			{Title: "Limit", Width: 10},
			{Title: "Balance", Width: 10},
			{Title: "Available", Width: 10},
			{Title: "Active", Width: 6},
		}),
		loading: true,
		in:      &accountsInput{},
	}
}

func (m AccountsModel) Title() string { return "Accounts" }

func (m AccountsModel) ShortHelp() string {
	if m.state != accountsStateBrowse {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | l: credit limit | a: activate/deactivate | p: register payment | r: refresh"
}

func (m AccountsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m AccountsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadAccountsMsg:
		m.loading = false
		m.err = msg.err
		m.accounts = msg.accounts
		m.refreshTable()

		return m, nil

	case doneMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		m.state = accountsStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == accountsStateBrowse {
		return m.updateBrowse(msg)
	}

	return m.updateForm(msg)
}

func (m AccountsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "a":
			return m, m.toggleActiveCmd()
		case "l":
			return m.enterLimit()
		case "p":
			return m.enterPayment()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func validAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not a number")
	}

	if d.IsNegative() {
		return fmt.Errorf("cannot be negative")
	}

	return nil
}

func (m AccountsModel) enterLimit() (tea.Model, tea.Cmd) {
	a, ok := selected(m.table, m.accounts)
	if !ok {
		return m, nil
	}

	m.in.limit = FormatAmount(a.CreditLimit)
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("limit").
				Title("Credit limit").
				Value(&m.in.limit).
				Validate(validAmount),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = accountsStateLimit
	m.table.Blur()

	return m, m.form.Init()
}

func (m AccountsModel) enterPayment() (tea.Model, tea.Cmd) {
	if _, ok := selected(m.table, m.accounts); !ok {
		return m, nil
	}

	m.in.amount = ""
	m.in.method = payment.MethodCash
	m.in.state = payment.StateApplied
	m.in.obs = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("amount").
				Title("Amount").
				Value(&m.in.amount).
				Validate(validAmount),

			huh.NewSelect[payment.Method]().
				Key("method").
				Title("Method").
				Options(huh.NewOptions(payment.MethodCash, payment.MethodCard, payment.MethodTransfer, payment.MethodCheck)...).
				Value(&m.in.method),

			huh.NewSelect[payment.State]().
				Key("state").
				Title("State").
				Options(huh.NewOptions(payment.StateApplied, payment.StatePending)...).
				Value(&m.in.state),

			huh.NewInput().
				Key("observations").
				Title("Observations").
				Value(&m.in.obs),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = accountsStatePayment
	m.table.Blur()

	return m, m.form.Init()
}

func (m AccountsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = accountsStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == accountsStateLimit {
		return m, m.saveLimitCmd()
	}

	return m, m.registerPaymentCmd()
}

func (m AccountsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading accounts...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf("Accounts: %s", activeStyle(fmt.Sprint(len(m.accounts))))
	content := frame(header, m.table, m.status)

	if m.form != nil {
		title := "Change Credit Limit"
		if m.state == accountsStatePayment {
			title = "Register Payment"
		}

		if a, ok := selected(m.table, m.accounts); ok {
			title += "\n" + a.CustomerName
		}

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel(title, m.form.View()))
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *AccountsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.accounts))
	for _, a := range m.accounts {
		active := "yes"
		if !a.Active {
			active = "no"
		}

		rows = append(rows, table.Row{
			a.CustomerName,
			a.CustomerEmail,
			FormatAmount(a.CreditLimit),
			FormatAmount(a.CurrentBalance),
			FormatAmount(a.AvailableCredit()),
			active,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadAccountsMsg struct {
	accounts []*account.Account
	err      error
}

func (m AccountsModel) loadCmd() tea.Cmd {
	d := m.desk

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		accounts, err := d.Accounts.ListByStore(ctx, d.ID, d.StoreID)

		return loadAccountsMsg{accounts: accounts, err: err}
	}
}

func (m AccountsModel) toggleActiveCmd() tea.Cmd {
	a, ok := selected(m.table, m.accounts)
	if !ok {
		return nil
	}

	d := m.desk

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		updated, err := d.Accounts.SetActive(ctx, d.ID, a.ID, !a.Active)
		if err != nil {
			return doneMsg{err: err}
		}

		verb := "activated"
		if !updated.Active {
			verb = "deactivated"
		}

		return doneMsg{status: fmt.Sprintf("%s %s", updated.CustomerName, verb)}
	}
}

func (m AccountsModel) saveLimitCmd() tea.Cmd {
	a, ok := selected(m.table, m.accounts)
	if !ok {
		return nil
	}

	d := m.desk
	raw := m.in.limit

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		limit, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return doneMsg{err: err}
		}

		updated, err := d.Accounts.SetLimit(ctx, d.ID, a.ID, limit)
		if err != nil {
			return doneMsg{err: err}
		}

		return doneMsg{status: fmt.Sprintf("Limit of %s set to %s", updated.CustomerName, FormatAmount(updated.CreditLimit))}
	}
}

func (m AccountsModel) registerPaymentCmd() tea.Cmd {
	a, ok := selected(m.table, m.accounts)
	if !ok {
		return nil
	}

	d := m.desk
	params := payment.CreateParams{
		AccountID:    a.ID,
		Method:       m.in.method,
		Observations: m.in.obs,
		InitialState: m.in.state,
	}
	raw := m.in.amount

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return doneMsg{err: err}
		}

		params.Amount = amount

		p, err := d.Payments.Create(ctx, d.ID, params)
		if err != nil {
			return doneMsg{err: err}
		}

		return doneMsg{status: fmt.Sprintf("Payment of %s registered as %s", FormatAmount(p.Amount), p.State)}
	}
}
