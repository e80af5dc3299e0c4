package model

type Field string

const (
	FieldPriority         Field = "priority"
	FieldDesiredAt        Field = "desired_at"
	FieldEstimatedMinutes Field = "estimated_minutes"
)

// Locks is the per-task write permission record. A set flag means no
// automated component may change that field.
type Locks struct {
	Priority         bool
	DesiredAt        bool
	EstimatedMinutes bool
}

func (l Locks) Allows(f Field) bool {
	switch f {
	case FieldPriority:
		return !l.Priority
	case FieldDesiredAt:
		return !l.DesiredAt
	case FieldEstimatedMinutes:
		return !l.EstimatedMinutes
	default:
		return false
	}
}

func (l Locks) Locked() []Field {
	out := make([]Field, 0, 3)
	if l.Priority {
		out = append(out, FieldPriority)
	}
	if l.DesiredAt {
		out = append(out, FieldDesiredAt)
	}
	if l.EstimatedMinutes {
		out = append(out, FieldEstimatedMinutes)
	}
	return out
}
