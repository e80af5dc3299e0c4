package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/taskplan/internal/model"
)

type BlockRowData struct {
	TaskID   string
	Title    string
	Order    int
	Day      string
	Start    string
	End      string
	Minutes  int
	Priority string
	Locks    []string
}

type PlanPanelData struct {
	Path       string
	Model      string
	RunID      string
	TableView  string
	Rows       []BlockRowData
	SelectedID string
}

type FailureData struct {
	TaskID string
	Title  string
	Reason string
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

// BlockRows flattens plan blocks into display rows in plan order. Times are
// shown in loc.
func BlockRows(p model.Plan, tasks []model.Task, loc *time.Location) []BlockRowData {
	if loc == nil {
		loc = time.UTC
	}
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	blocks := append([]model.ScheduledBlock(nil), p.Blocks...)
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Order < blocks[j].Order })

	out := make([]BlockRowData, 0, len(blocks))
	for _, b := range blocks {
		row := BlockRowData{
			TaskID:  b.TaskID,
			Title:   b.TaskID,
			Order:   b.Order,
			Day:     b.Start.In(loc).Format("Mon 2006-01-02"),
			Start:   b.Start.In(loc).Format("15:04"),
			End:     b.End.In(loc).Format("15:04"),
			Minutes: int(b.Duration() / time.Minute),
		}
		if t, ok := byID[b.TaskID]; ok {
			if strings.TrimSpace(t.Title) != "" {
				row.Title = t.Title
			}
			row.Priority = t.Priority.String()
			for _, f := range t.Locks.Locked() {
				row.Locks = append(row.Locks, string(f))
			}
		}
		out = append(out, row)
	}
	return out
}

func FailureRows(p model.Plan, tasks []model.Task) []FailureData {
	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}
	out := make([]FailureData, 0, len(p.Failures))
	for _, f := range p.Failures {
		out = append(out, FailureData{TaskID: f.TaskID, Title: titles[f.TaskID], Reason: f.Reason})
	}
	return out
}

// PathLabel is the one-line summary of which path produced a plan.
func PathLabel(path model.Path, modelName string) string {
	switch path {
	case model.PathExternal:
		if modelName != "" {
			return fmt.Sprintf("external estimator (%s)", modelName)
		}
		return "external estimator"
	case model.PathFallback:
		return "local fallback scheduler"
	default:
		return "no plan yet"
	}
}

func RenderPlanPanel(data PlanPanelData) string {
	var b strings.Builder
	b.WriteString("plan:\n")
	b.WriteString(fmt.Sprintf("path: %s\n", PathLabel(model.Path(data.Path), data.Model)))
	if data.RunID != "" {
		b.WriteString(fmt.Sprintf("run: %s\n", data.RunID))
	}
	b.WriteString("actions: [r]replan [l]local [a]apply [j/k]move\n")
	if data.TableView != "" {
		b.WriteString(data.TableView + "\n")
	}

	grouped := make(map[string][]BlockRowData)
	keys := make([]string, 0)
	for _, row := range data.Rows {
		if _, ok := grouped[row.Day]; !ok {
			keys = append(keys, row.Day)
		}
		grouped[row.Day] = append(grouped[row.Day], row)
	}
	if len(keys) == 0 {
		b.WriteString("(no blocks)")
		return b.String()
	}
	for _, day := range keys {
		b.WriteString(fmt.Sprintf("\n%s:\n", day))
		for _, row := range grouped[day] {
			cursor := " "
			if data.SelectedID == row.TaskID {
				cursor = ">"
			}
			b.WriteString(fmt.Sprintf("%s #%d %s-%s %s\n", cursor, row.Order, row.Start, row.End, row.Title))
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderBlockDetail(row *BlockRowData) string {
	if row == nil {
		return "block:\n(no selection)"
	}
	locks := "none"
	if len(row.Locks) > 0 {
		locks = strings.Join(row.Locks, ",")
	}
	return fmt.Sprintf("block:\nid: %s\ntitle: %s\nwhen: %s %s-%s (%dm)\npriority: %s\nlocked: %s",
		row.TaskID, row.Title, row.Day, row.Start, row.End, row.Minutes, row.Priority, locks)
}

func RenderFailures(items []FailureData) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("unplaced:\n")
	for _, f := range items {
		label := f.TaskID
		if f.Title != "" {
			label = fmt.Sprintf("%s (%s)", f.TaskID, f.Title)
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", label, f.Reason))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderNotes(notes []string) string {
	if len(notes) == 0 {
		return ""
	}
	return "notes:\n- " + strings.Join(notes, "\n- ")
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n%s", strings.Join(data.Bindings, "\n"), data.HelpView)
}

// PlanMarkdown renders a plan as a markdown report for glamour or export.
func PlanMarkdown(title string, path model.Path, modelName string, rows []BlockRowData, failures []FailureData, notes []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", title))
	b.WriteString(fmt.Sprintf("Planned by the %s.\n\n", PathLabel(path, modelName)))
	if len(rows) == 0 {
		b.WriteString("_No blocks scheduled._\n")
	} else {
		b.WriteString("| # | Day | Time | Task | Minutes |\n")
		b.WriteString("|---|-----|------|------|---------|\n")
		for _, r := range rows {
			b.WriteString(fmt.Sprintf("| %d | %s | %s-%s | %s | %d |\n", r.Order, r.Day, r.Start, r.End, escapeCell(r.Title), r.Minutes))
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n## Unplaced\n\n")
		for _, f := range failures {
			b.WriteString(fmt.Sprintf("- **%s**: %s\n", f.TaskID, f.Reason))
		}
	}
	if len(notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, n := range notes {
			b.WriteString(fmt.Sprintf("- %s\n", n))
		}
	}
	return b.String()
}

func escapeCell(v string) string {
	return strings.ReplaceAll(v, "|", `\|`)
}
