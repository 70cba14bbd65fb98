package view

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/fiado/internal/audit"
)

const eventsPageSize = 50

type EventsModel struct {
	desk Desk

	table   table.Model
	events  []*audit.Event
	summary *audit.Summary

	timeframe Timeframe
	offset    int

	loading bool
	err     error
}

func NewEventsModel(d Desk) EventsModel {
	return EventsModel{
		desk: d,
		table: newTable([]table.Column{
			{Title: "Date", Width: 17},
			{Title: "Type", Width: 22},
			{Title: "Amount", Width: 10},
			{Title: "Description", Width: 50},
		}),
		timeframe: TimeframeToday,
		loading:   true,
	}
}

func (m EventsModel) Title() string { return "Store Feed" }

func (m EventsModel) ShortHelp() string {
	return "Esc: back | d: timeframe | n/p: next/previous page | r: refresh"
}

func (m EventsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m EventsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadEventsMsg:
		m.loading = false
		m.err = msg.err
		m.events = msg.events
		m.summary = msg.summary
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 12)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "d":
			m.timeframe = Timeframe(cycle(int(m.timeframe), timeframeCount))
			m.offset = 0

			return m, m.loadCmd()
		case "n":
			if len(m.events) < eventsPageSize {
				return m, nil
			}

			m.offset += eventsPageSize

			return m, m.loadCmd()
		case "p":
			if m.offset == 0 {
				return m, nil
			}

			m.offset = max(m.offset-eventsPageSize, 0)

			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m EventsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading store feed...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	var summary string

	if s := m.summary; s != nil {
		summary = fmt.Sprintf(
			"Today: %d sales %s, %d payments %s\nMonth: %d sales %s, %d payments %s\n\n",
			s.SalesToday.Count, FormatAmount(s.SalesToday.Amount),
			s.PaymentsToday.Count, FormatAmount(s.PaymentsToday.Amount),
			s.SalesMonth.Count, FormatAmount(s.SalesMonth.Amount),
			s.PaymentsMonth.Count, FormatAmount(s.PaymentsMonth.Amount),
		)
	}

	header := summary + fmt.Sprintf(
		"[d] Timeframe: %s | Page %d",
		activeStyle(m.timeframe.String()),
		m.offset/eventsPageSize+1,
	)

	return lipgloss.NewStyle().Padding(1).Render(frame(header, m.table, ""))
}

func (m *EventsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.events))
	for _, ev := range m.events {
		amount := ""
		if ev.Amount.Valid {
			amount = FormatAmount(ev.Amount.Decimal)
		}

		rows = append(rows, table.Row{
			FormatDate(ev.CreatedAt),
			string(ev.Type),
			amount,
			ev.Description,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadEventsMsg struct {
	events  []*audit.Event
	summary *audit.Summary
	err     error
}

func (m EventsModel) loadCmd() tea.Cmd {
	d := m.desk
	from, to := m.timeframe.Range(time.Now())
	filter := audit.ListFilter{
		StoreID: d.StoreID,
		From:    from,
		To:      to,
		Limit:   eventsPageSize,
		Offset:  m.offset,
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		summary, err := d.Trail.Summary(ctx, d.ID, d.StoreID)
		if err != nil {
			return loadEventsMsg{err: err}
		}

		events, err := d.Trail.List(ctx, d.ID, filter)

		return loadEventsMsg{events: events, summary: summary, err: err}
	}
}
