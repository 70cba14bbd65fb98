package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/fiado/internal/app"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
)

type model struct {
	desk view.Desk

	currentView View
	screen      view.View
}

type View int

const (
	ViewMenu     View = 0
	ViewAccounts View = 1
	ViewSales    View = 2
	ViewPayments View = 3
	ViewEvents   View = 4
)

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) open(v View) (tea.Model, tea.Cmd) {
	m.currentView = v

	switch v {
	case ViewAccounts:
		m.screen = view.NewAccountsModel(m.desk)
	case ViewSales:
		m.screen = view.NewSalesModel(m.desk)
	case ViewPayments:
		m.screen = view.NewPaymentsModel(m.desk)
	case ViewEvents:
		m.screen = view.NewEventsModel(m.desk)
	}

	return m, m.screen.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				return m.open(ViewAccounts)
			case "2":
				return m.open(ViewSales)
			case "3":
				return m.open(ViewPayments)
			case "4":
				return m.open(ViewEvents)
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		m.screen = nil

		return m, nil
	}

	if m.screen == nil {
		return m, nil
	}

	next, cmd := m.screen.Update(msg)
	m.screen = next.(view.View)

	return m, cmd
}

func (m model) View() string {
	if m.currentView == ViewMenu || m.screen == nil {
		return lipgloss.NewStyle().Padding(2).Render(
			fmt.Sprintf("Fiado Desk  %s\n\n", lipgloss.NewStyle().Faint(true).Render(m.desk.StoreID.String())) +
				"1. Accounts\n" +
				"2. Sales\n" +
				"3. Payments\n" +
				"4. Store Feed\n\n" +
				"q. Quit",
		)
	}

	help := lipgloss.NewStyle().Faint(true).Render(m.screen.ShortHelp())

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(m.screen.Title()),
		m.screen.View(),
		lipgloss.NewStyle().PaddingLeft(1).Render(help),
	)
}

// run opens the desk for the staff member FIADO_AS in the store FIADO_STORE.
func run(ctx context.Context) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.Identity(ctx, os.Getenv("FIADO_AS"))
	if err != nil {
		return err
	}

	storeID, err := uuid.Parse(os.Getenv("FIADO_STORE"))
	if err != nil {
		return fmt.Errorf("invalid FIADO_STORE: %w", err)
	}

	if err := guard.RequireStaff(id, storeID); err != nil {
		return err
	}

	desk := view.Desk{
		Accounts: a.Accounts,
		Sales:    a.Sales,
		Payments: a.Payments,
		Trail:    a.Trail,
		ID:       id,
		StoreID:  storeID,
	}

	a.Log.Info("opening desk", zap.Stringer("store_id", storeID), zap.Stringer("user_id", id.UserID))

	_, err = tea.NewProgram(model{desk: desk}, tea.WithAltScreen()).Run()

	return err
}

func main() {
	_ = godotenv.Load()

	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
