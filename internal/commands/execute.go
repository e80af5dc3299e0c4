package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Plan   func(PlanArgs) (Result, error)
	Apply  func() (Result, error)
	Show   func(ShowArgs) (Result, error)
	Import func(ImportArgs) (Result, error)
	Export func(ExportArgs) (Result, error)
	Lock   func(LockArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypePlan:
		if handlers.Plan == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "plan handler not configured"}
		}
		return handlers.Plan(*cmd.Plan)
	case TypeApply:
		if handlers.Apply == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "apply handler not configured"}
		}
		return handlers.Apply()
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "show handler not configured"}
		}
		return handlers.Show(*cmd.Show)
	case TypeImport:
		if handlers.Import == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "import handler not configured"}
		}
		return handlers.Import(*cmd.Import)
	case TypeExport:
		if handlers.Export == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "export handler not configured"}
		}
		return handlers.Export(*cmd.Export)
	case TypeLock, TypeUnlock:
		if handlers.Lock == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "lock handler not configured"}
		}
		return handlers.Lock(*cmd.Lock)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
