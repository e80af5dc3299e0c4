package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskplan/internal/commands"
	"github.com/sandeepkv93/taskplan/internal/model"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	}
	if msg.Type == tea.KeyRunes {
		m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
		m.Palette.Input = m.commandInput.Value()
		return m, nil
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

func (m *Model) closePalette() {
	m.Palette = CommandPaletteState{}
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}

	var next tea.Cmd
	res, err := commands.Execute(cmd, commands.Handlers{
		Plan: func(a commands.PlanArgs) (commands.Result, error) {
			if m.Busy {
				return commands.Result{}, fmt.Errorf("a run is already in progress")
			}
			m.Busy = true
			next = tea.Batch(m.busySpinner.Tick, m.generateCmd(a.Local))
			return commands.Result{Message: "planning..."}, nil
		},
		Apply: func() (commands.Result, error) {
			if m.Busy {
				return commands.Result{}, fmt.Errorf("a run is already in progress")
			}
			m.Busy = true
			next = tea.Batch(m.busySpinner.Tick, m.applyCmd())
			return commands.Result{Message: "applying..."}, nil
		},
		Show: func(a commands.ShowArgs) (commands.Result, error) {
			m.ShowReport = a.Subject == commands.ShowReport
			return commands.Result{Message: fmt.Sprintf("showing %s", a.Subject)}, nil
		},
		Import: func(a commands.ImportArgs) (commands.Result, error) {
			in, err := model.ReadInputFile(a.Path)
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.backend.Import(m.ctx, m.Owner, in); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("imported %d task(s) from %s", len(in.Tasks), a.Path)}, nil
		},
		Export: func(a commands.ExportArgs) (commands.Result, error) {
			if a.Path == "" {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "export needs a file path here"}
			}
			in, err := m.backend.Export(m.ctx, m.Owner)
			if err != nil {
				return commands.Result{}, err
			}
			if err := model.WriteInputFile(a.Path, in); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("exported to %s", a.Path)}, nil
		},
		Lock: func(a commands.LockArgs) (commands.Result, error) {
			if err := m.backend.SetLock(m.ctx, m.Owner, a.TaskID, a.Field, a.Locked); err != nil {
				return commands.Result{}, err
			}
			verb := "unlocked"
			if a.Locked {
				verb = "locked"
			}
			return commands.Result{Message: fmt.Sprintf("%s %s on task %s", verb, a.Field, a.TaskID)}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message}
	return m, next
}
