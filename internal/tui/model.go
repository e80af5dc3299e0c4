package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskplan/internal/model"
	"github.com/sandeepkv93/taskplan/internal/planner"
	"github.com/sandeepkv93/taskplan/internal/views"
)

// Backend is the slice of the planning service the browser drives.
type Backend interface {
	Generate(ctx context.Context, owner string) (planner.Report, error)
	GenerateLocal(ctx context.Context, owner string) (planner.Report, error)
	Latest(ctx context.Context, owner string) (planner.Report, error)
	Apply(ctx context.Context, owner string) (int, error)
	Import(ctx context.Context, owner string, in model.Input) error
	Export(ctx context.Context, owner string) (model.Input, error)
	SetLock(ctx context.Context, owner, taskID string, field model.Field, locked bool) error
}

type StatusBar struct {
	Text    string
	IsError bool
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Model struct {
	Owner       string
	Report      *planner.Report
	Tasks       []model.Task
	Rows        []views.BlockRowData
	Cursor      int
	Status      StatusBar
	Palette     CommandPaletteState
	HelpVisible bool
	ShowReport  bool
	Busy        bool
	Quitting    bool
	Keys        KeyMap

	ctx     context.Context
	backend Backend
	width   int

	blockTable   table.Model
	reportView   viewport.Model
	busySpinner  spinner.Model
	helpModel    help.Model
	commandInput textinput.Model
}

// planLoadedMsg carries a fresh report and the task records behind it.
type planLoadedMsg struct {
	report planner.Report
	tasks  []model.Task
	err    error
	// initial is set for the load issued by Init; a missing run is not an error then.
	initial bool
}

type appliedMsg struct {
	count int
	err   error
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

func NewModel(ctx context.Context, backend Backend, owner string) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		Owner:   owner,
		Keys:    DefaultKeyMap(),
		ctx:     ctx,
		backend: backend,
	}
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Day", Width: 15},
		{Title: "Time", Width: 11},
		{Title: "Task", Width: 22},
		{Title: "Min", Width: 4},
	}
	m.blockTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	m.reportView = viewport.New(56, 16)

	m.busySpinner = spinner.New()
	m.busySpinner.Spinner = spinner.Dot

	m.helpModel = help.New()

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd(func(ctx context.Context) (planner.Report, error) {
		return m.backend.Latest(ctx, m.Owner)
	}, true)
}

func (m Model) loadCmd(run func(context.Context) (planner.Report, error), initial bool) tea.Cmd {
	ctx, backend, owner := m.ctx, m.backend, m.Owner
	return func() tea.Msg {
		report, err := run(ctx)
		if err != nil {
			return planLoadedMsg{err: err, initial: initial}
		}
		in, err := backend.Export(ctx, owner)
		if err != nil {
			return planLoadedMsg{err: err, initial: initial}
		}
		return planLoadedMsg{report: report, tasks: in.Tasks, initial: initial}
	}
}

func (m Model) generateCmd(local bool) tea.Cmd {
	return m.loadCmd(func(ctx context.Context) (planner.Report, error) {
		if local {
			return m.backend.GenerateLocal(ctx, m.Owner)
		}
		return m.backend.Generate(ctx, m.Owner)
	}, false)
}

func (m Model) applyCmd() tea.Cmd {
	ctx, backend, owner := m.ctx, m.backend, m.Owner
	return func() tea.Msg {
		n, err := backend.Apply(ctx, owner)
		return appliedMsg{count: n, err: err}
	}
}

func (m *Model) setReport(report planner.Report, tasks []model.Task) {
	m.Report = &report
	m.Tasks = tasks
	m.Rows = views.BlockRows(report.Plan, tasks, report.Location)
	if m.Cursor >= len(m.Rows) {
		m.Cursor = 0
	}
	m.syncBubbleData()
}

func (m *Model) syncBubbleData() {
	rows := make([]table.Row, 0, len(m.Rows))
	for _, r := range m.Rows {
		rows = append(rows, table.Row{fmt.Sprintf("%d", r.Order), r.Day, r.Start + "-" + r.End, r.Title, fmt.Sprintf("%d", r.Minutes)})
	}
	m.blockTable.SetRows(rows)
	if len(rows) > 0 {
		m.blockTable.SetCursor(m.Cursor)
	}
	m.reportView.SetContent(views.RenderMarkdown(m.reportMarkdown()))
}

func (m Model) reportMarkdown() string {
	if m.Report == nil {
		return ""
	}
	return views.PlanMarkdown(
		fmt.Sprintf("Plan for %s", m.Owner),
		m.Report.Plan.Path,
		m.Report.Model,
		m.Rows,
		views.FailureRows(m.Report.Plan, m.Tasks),
		m.Report.Plan.Notes,
	)
}

func (m Model) selectedRow() *views.BlockRowData {
	if m.Cursor < 0 || m.Cursor >= len(m.Rows) {
		return nil
	}
	row := m.Rows[m.Cursor]
	return &row
}

func statusForReport(r planner.Report) StatusBar {
	return StatusBar{Text: fmt.Sprintf("planned %d block(s), %d unplaced via %s",
		len(r.Plan.Blocks), len(r.Plan.Failures), views.PathLabel(r.Plan.Path, r.Model))}
}

func statusForError(err error, initial bool) StatusBar {
	if initial && errors.Is(err, planner.ErrNoRun) {
		return StatusBar{Text: "no plan yet, press r to plan"}
	}
	return StatusBar{Text: err.Error(), IsError: true}
}
