package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskplan/internal/views"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.reportView.Width = views.PaneWidth(typed.Width)
		if typed.Height > 10 {
			m.reportView.Height = typed.Height - 10
		}
		return m, nil
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		return m.handleKey(typed)
	case spinner.TickMsg:
		if m.Busy {
			var cmd tea.Cmd
			m.busySpinner, cmd = m.busySpinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case planLoadedMsg:
		m.Busy = false
		if typed.err != nil {
			m.Status = statusForError(typed.err, typed.initial)
			return m, nil
		}
		m.setReport(typed.report, typed.tasks)
		m.Status = statusForReport(typed.report)
		return m, nil
	case appliedMsg:
		m.Busy = false
		if typed.err != nil {
			m.Status = StatusBar{Text: typed.err.Error(), IsError: true}
			return m, nil
		}
		m.Status = StatusBar{Text: fmt.Sprintf("applied %d block(s) to the calendar", typed.count)}
		m.Rows = nil
		m.Cursor = 0
		if m.Report != nil {
			m.Report.Plan.Blocks = nil
		}
		m.syncBubbleData()
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Help):
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case key.Matches(msg, m.Keys.Palette):
		m.Palette = CommandPaletteState{Active: true}
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		m.Status = StatusBar{Text: "command palette active"}
		return m, nil
	case key.Matches(msg, m.Keys.Report):
		m.ShowReport = !m.ShowReport
		return m, nil
	case key.Matches(msg, m.Keys.Down):
		if m.ShowReport {
			m.reportView.SetYOffset(m.reportView.YOffset + 1)
			return m, nil
		}
		if m.Cursor < len(m.Rows)-1 {
			m.Cursor++
			m.blockTable.SetCursor(m.Cursor)
		}
		return m, nil
	case key.Matches(msg, m.Keys.Up):
		if m.ShowReport {
			m.reportView.SetYOffset(m.reportView.YOffset - 1)
			return m, nil
		}
		if m.Cursor > 0 {
			m.Cursor--
			m.blockTable.SetCursor(m.Cursor)
		}
		return m, nil
	}

	if m.Busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.Keys.Replan):
		return m.startBusy("planning", m.generateCmd(false))
	case key.Matches(msg, m.Keys.Local):
		return m.startBusy("planning locally", m.generateCmd(true))
	case key.Matches(msg, m.Keys.Apply):
		return m.startBusy("applying", m.applyCmd())
	}
	return m, nil
}

func (m Model) startBusy(label string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.Busy = true
	m.Status = StatusBar{Text: label + "..."}
	return m, tea.Batch(m.busySpinner.Tick, cmd)
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	if m.Busy {
		status = m.busySpinner.View() + " " + status
	}

	panel := views.PlanPanelData{TableView: m.blockTable.View(), Rows: m.Rows}
	if m.Report != nil {
		panel.Path = string(m.Report.Plan.Path)
		panel.Model = m.Report.Model
		panel.RunID = m.Report.RunID
	}
	if row := m.selectedRow(); row != nil {
		panel.SelectedID = row.TaskID
	}

	var right string
	if m.ShowReport {
		right = m.reportView.View()
	} else {
		parts := []string{views.RenderBlockDetail(m.selectedRow())}
		if m.Report != nil {
			parts = append(parts, views.RenderFailures(views.FailureRows(m.Report.Plan, m.Tasks)), views.RenderNotes(m.Report.Plan.Notes))
		}
		right = joinNonEmpty(parts, "\n\n")
	}
	right += m.renderHelpIfVisible()

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("taskplan | owner: %s", m.Owner),
		LeftPane:     views.RenderPlanPanel(panel),
		RightPane:    right,
		StatusLine:   status,
		Notification: views.RenderCommandPalette(m.Palette.Active, m.commandInput.Value()),
		Footer:       m.helpModel.ShortHelpView(m.Keys.ShortHelp()),
		Width:        m.width,
	})
}

func joinNonEmpty(parts []string, sep string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
