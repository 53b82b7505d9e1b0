package main

import (
	"context"
	"os"

	cl "monety/internal/cli"
	"monety/internal/invest"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var spinStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

type spinDoneMsg struct {
	out invest.SpinResult
	err error
}

type spinModel struct {
	spinner spinner.Model
	call    func() (invest.SpinResult, error)
	done    bool
	out     invest.SpinResult
	err     error
}

func (m spinModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		out, err := m.call()
		return spinDoneMsg{out: out, err: err}
	})
}

func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinDoneMsg:
		m.done, m.out, m.err = true, msg.out, msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.err = context.Canceled
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + spinStyle.Render("Spinning the roulette...") + "\n"
}

// runSpin animates the roulette while the request is in flight. Without a
// terminal it just makes the call.
func runSpin(ctx context.Context, client *cl.Client, accessToken string) (invest.SpinResult, error) {
	call := func() (invest.SpinResult, error) { return client.Spin(ctx, accessToken) }
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return call()
	}
	m := spinModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinStyle)),
		call:    call,
	}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return invest.SpinResult{}, err
	}
	fm := final.(spinModel)
	return fm.out, fm.err
}
