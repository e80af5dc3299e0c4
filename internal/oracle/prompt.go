package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandeepkv93/taskplan/internal/model"
)

const SystemPrompt = `You are a task planning assistant. Schedule the new tasks around the user's existing calendar.

Constraints:
- Never overlap any interval in existing_events.
- Keep every block inside window_start..window_end.
- Keep every block inside the working hours given by availability.
- Prefer tasks with a nearer deadline or a higher priority (1 is highest).
- Move tasks with desired_at as close to that time as possible, or to the nearest free slot.
- Estimate estimated_minutes from title and memo when it is null.
- Work at most 90 minutes in a row, then take a 10 minute break.

Locked values:
- Never change a field whose *_locked flag is true.
- For desired_at_locked=true, start_at must equal desired_at unless that slot collides; then use the nearest free slot.
- Only decide fields that are null or whose lock flag is false.

Output:
- Reply with a JSON array only, no other text.
- Each element has id, order, start_at, end_at, estimated_minutes and priority.
- order is a 1-based sequence.
- Timestamps are ISO-8601 with an explicit offset.`

// BuildPrompt renders the planning payload for the user turn.
func BuildPrompt(doc model.InputDoc) (string, error) {
	tasks, err := json.Marshal(doc.Tasks)
	if err != nil {
		return "", fmt.Errorf("oracle: encode tasks: %w", err)
	}
	events, err := json.Marshal(doc.ExistingEvents)
	if err != nil {
		return "", fmt.Errorf("oracle: encode events: %w", err)
	}
	avail, err := json.Marshal(doc.Availability)
	if err != nil {
		return "", fmt.Errorf("oracle: encode availability: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Plan these tasks.\n\n")
	sb.WriteString("tasks: ")
	sb.Write(tasks)
	sb.WriteString("\n\nexisting_events: ")
	sb.Write(events)
	sb.WriteString("\n\navailability: ")
	sb.Write(avail)
	fmt.Fprintf(&sb, "\n\nwindow_start: %q\nwindow_end: %q\n", doc.WindowStart, doc.WindowEnd)
	return sb.String(), nil
}
