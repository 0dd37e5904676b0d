package import_openlibrary

import (
	"fmt"
	"strings"

	"breads/ingest"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type lineProcessed struct {
	saved bool
	err   error
}

type importFinished struct {
	summary ingest.Summary
	err     error
}

type model struct {
	kind  ingest.Kind
	total int

	records progress.Model
	spinner spinner.Model

	saved    int
	skipped  int
	lastSkip error

	done bool
	err  error
}

func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.records.Width = max(10, msg.Width-4)

	case lineProcessed:
		if msg.saved {
			m.saved++
		} else {
			m.skipped++
			m.lastSkip = msg.err
		}

	case importFinished:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *model) processed() int {
	return m.saved + m.skipped
}

func (m *model) View() string {
	sb := strings.Builder{}

	if m.done {
		sb.WriteString(fmt.Sprintf("Importing %s...Done\n\n", m.kind))
	} else {
		sb.WriteString(fmt.Sprintf("%s Importing %s...\n\n", m.spinner.View(), m.kind))
	}

	percent := 1.0
	if m.total > 0 {
		percent = min(1.0, float64(m.processed())/float64(m.total))
	}
	sb.WriteString(m.records.ViewAs(percent))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Processed: %v/%v\nSaved: %v\nSkipped: %v\n", m.processed(), m.total, m.saved, m.skipped))

	if m.lastSkip != nil {
		sb.WriteString(fmt.Sprintf("Last skipped: %s\n", m.lastSkip))
	}
	if m.err != nil {
		sb.WriteString(fmt.Sprintf("\nFailed: %s\n", m.err))
	}

	return sb.String()
}
