package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fiado/internal/sale"
)

var (
	saleStateFilters = []*sale.State{nil, new(sale.StatePending), new(sale.StatePaid), new(sale.StateCancelled)}
	saleTypeFilters  = []*sale.Type{nil, new(sale.TypeCredit), new(sale.TypeCash)}
)

type SalesModel struct {
	desk Desk

	table  table.Model
	sales  []*sale.Sale
	names  map[uuid.UUID]string
	detail *sale.Sale

	stateFilterIdx int
	typeFilterIdx  int

	loading bool
	err     error
	status  string
}

func NewSalesModel(d Desk) SalesModel {
	return SalesModel{
		desk: d,
		table: newTable([]table.Column{
			{Title: "Date", Width: 17},
			{Title: "Type", Width: 7},
			{Title: "State", Width: 10},
			{Title: "Customer", Width: 24},
			{Title: "Total", Width: 10},
			{Title: "Observations", Width: 30},
		}),
		loading: true,
	}
}

func (m SalesModel) Title() string { return "Sales" }

func (m SalesModel) ShortHelp() string {
	return "Esc: back | Enter: items | m: mark paid | c: cancel | s: state filter | t: type filter | r: refresh"
}

func (m SalesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m SalesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadSalesMsg:
		m.loading = false
		m.err = msg.err
		m.sales = msg.sales
		m.names = msg.names
		m.refreshTable()

		return m, nil

	case saleDetailMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.detail = msg.sale

		return m, nil

	case doneMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		m.detail = nil

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.detail != nil {
				m.detail = nil
				return m, nil
			}

			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "enter":
			return m, m.detailCmd()
		case "m":
			return m, m.transitionCmd(sale.StatePaid)
		case "c":
			return m, m.transitionCmd(sale.StateCancelled)
		case "s":
			m.stateFilterIdx = cycle(m.stateFilterIdx, len(saleStateFilters))
			return m, m.loadCmd()
		case "t":
			m.typeFilterIdx = cycle(m.typeFilterIdx, len(saleTypeFilters))
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func filterLabel[T ~string](v *T) string {
	if v == nil {
		return "All"
	}

	return string(*v)
}

func (m SalesModel) customer(s *sale.Sale) string {
	if s.AccountID != nil {
		return m.names[*s.AccountID]
	}

	return s.OccasionalCustomer
}

func (m SalesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading sales...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf(
		"Filter: [s] State: %s | [t] Type: %s",
		activeStyle(filterLabel(saleStateFilters[m.stateFilterIdx])),
		activeStyle(filterLabel(saleTypeFilters[m.typeFilterIdx])),
	)

	content := frame(header, m.table, m.status)

	if m.detail != nil {
		var b strings.Builder

		for _, it := range m.detail.Items {
			fmt.Fprintf(&b, "%dx %s @ %s = %s\n", it.Quantity, it.ProductName, FormatAmount(it.UnitPrice), FormatAmount(it.Subtotal))
		}

		fmt.Fprintf(&b, "\nTotal: %s", FormatAmount(m.detail.Total))

		title := fmt.Sprintf("Sale %s\n%s", m.detail.State, m.customer(m.detail))
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel(title, b.String()))
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *SalesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.sales))
	for _, s := range m.sales {
		rows = append(rows, table.Row{
			FormatDate(s.CreatedAt),
			string(s.Type),
			string(s.State),
			m.customer(s),
			FormatAmount(s.Total),
			s.Observations,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadSalesMsg struct {
	sales []*sale.Sale
	names map[uuid.UUID]string
	err   error
}

func (m SalesModel) loadCmd() tea.Cmd {
	d := m.desk
	filter := sale.ListFilter{
		State: saleStateFilters[m.stateFilterIdx],
		Type:  saleTypeFilters[m.typeFilterIdx],
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		names, err := accountNames(ctx, d)
		if err != nil {
			return loadSalesMsg{err: err}
		}

		sales, err := d.Sales.ListByStore(ctx, d.ID, d.StoreID, filter)

		return loadSalesMsg{sales: sales, names: names, err: err}
	}
}

type saleDetailMsg struct {
	sale *sale.Sale
	err  error
}

func (m SalesModel) detailCmd() tea.Cmd {
	s, ok := selected(m.table, m.sales)
	if !ok {
		return nil
	}

	d := m.desk

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		full, err := d.Sales.Get(ctx, d.ID, s.ID)

		return saleDetailMsg{sale: full, err: err}
	}
}

func (m SalesModel) transitionCmd(to sale.State) tea.Cmd {
	s, ok := selected(m.table, m.sales)
	if !ok {
		return nil
	}

	d := m.desk

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		change := d.Sales.MarkPaid
		if to == sale.StateCancelled {
			change = d.Sales.Cancel
		}

		updated, err := change(ctx, d.ID, s.ID)
		if err != nil {
			return doneMsg{err: err}
		}

		return doneMsg{status: fmt.Sprintf("Sale of %s is now %s", FormatAmount(updated.Total), updated.State)}
	}
}
