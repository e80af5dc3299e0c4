package commands

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/taskplan/internal/model"
)

type Type string

const (
	TypePlan   Type = "plan"
	TypeApply  Type = "apply"
	TypeShow   Type = "show"
	TypeImport Type = "import"
	TypeExport Type = "export"
	TypeLock   Type = "lock"
	TypeUnlock Type = "unlock"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// PlanArgs selects the planning path. Local skips the external estimator.
type PlanArgs struct {
	Local bool
}

type ShowSubject string

const (
	ShowBlocks   ShowSubject = "blocks"
	ShowFailures ShowSubject = "failures"
	ShowNotes    ShowSubject = "notes"
	ShowReport   ShowSubject = "report"
)

type ShowArgs struct {
	Subject ShowSubject
}

type ImportArgs struct {
	Path string
}

// ExportArgs writes to stdout when Path is empty.
type ExportArgs struct {
	Path string
}

type LockArgs struct {
	TaskID string
	Field  model.Field
	Locked bool
}

type Command struct {
	Type   Type
	Raw    string
	Plan   *PlanArgs
	Show   *ShowArgs
	Import *ImportArgs
	Export *ExportArgs
	Lock   *LockArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypePlan:
		return parsePlan(input, args)
	case TypeApply:
		return Command{Type: TypeApply, Raw: input}, nil
	case TypeShow:
		return parseShow(input, args)
	case TypeImport:
		return parseImport(input, args)
	case TypeExport:
		return Command{Type: TypeExport, Raw: input, Export: &ExportArgs{Path: strings.Join(args, " ")}}, nil
	case TypeLock, TypeUnlock:
		return parseLock(input, Type(head), args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parsePlan(raw string, args []string) (Command, error) {
	out := PlanArgs{}
	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "local", "--local", "fallback":
			out.Local = true
		default:
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("plan: unexpected argument %q", arg)}
		}
	}
	return Command{Type: TypePlan, Raw: raw, Plan: &out}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	subject := ShowBlocks
	if len(args) > 0 {
		subject = ShowSubject(strings.ToLower(args[0]))
	}
	switch subject {
	case ShowBlocks, ShowFailures, ShowNotes, ShowReport:
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("show: unknown subject %q", subject)}
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject}}, nil
}

func parseImport(raw string, args []string) (Command, error) {
	path := strings.TrimSpace(strings.Join(args, " "))
	if path == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "import requires a file path"}
	}
	return Command{Type: TypeImport, Raw: raw, Import: &ImportArgs{Path: path}}, nil
}

func parseLock(raw string, kind Type, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a task id and a field", kind)}
	}
	field := model.Field(strings.ToLower(args[1]))
	switch field {
	case model.FieldPriority, model.FieldDesiredAt, model.FieldEstimatedMinutes:
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s: unknown field %q", kind, args[1])}
	}
	return Command{Type: kind, Raw: raw, Lock: &LockArgs{TaskID: args[0], Field: field, Locked: kind == TypeLock}}, nil
}
