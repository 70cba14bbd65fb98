package view

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
	"github.com/MrJamesThe3rd/fiado/internal/sale"
)

const dbTimeout = 5 * time.Second

// Desk is what every screen works against: the services, the acting staff member and their store.
type Desk struct {
	Accounts *account.Service
	Sales    *sale.Service
	Payments *payment.Service
	Trail    *audit.Trail

	ID      guard.Identity
	StoreID uuid.UUID
}

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// doneMsg reports the outcome of an action. The receiving view reloads its data.
type doneMsg struct {
	status string
	err    error
}

func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func FormatDate(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// selected returns the item under the table cursor.
func selected[T any](t table.Model, items []T) (T, bool) {
	var zero T

	idx := t.Cursor()
	if idx < 0 || idx >= len(items) {
		return zero, false
	}

	return items[idx], true
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func frame(header string, t table.Model, status string) string {
	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(t.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(status) + "\n" + content
	}

	return content
}

func panel(title, body string) string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(48).
		Render(title + "\n\n" + body)
}

// accountNames maps account ids to customer names for display.
func accountNames(ctx context.Context, d Desk) (map[uuid.UUID]string, error) {
	accounts, err := d.Accounts.ListByStore(ctx, d.ID, d.StoreID)
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.CustomerName
	}

	return names, nil
}

// cycle returns the next index in [0, n).
func cycle(i, n int) int {
	return (i + 1) % n
}
