package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	SetDone func(args TaskArgs, done bool) (Result, error)
	Toggle  func(TaskArgs) (Result, error)
	Goto    func(GotoArgs) (Result, error)
	Preview func(PreviewArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeCheck, TypeUncheck:
		if handlers.SetDone == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", cmd.Type)}
		}
		return handlers.SetDone(*cmd.Task, cmd.Type == TypeCheck)
	case TypeToggle:
		if handlers.Toggle == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "toggle handler not configured"}
		}
		return handlers.Toggle(*cmd.Task)
	case TypeGoto:
		if handlers.Goto == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "goto handler not configured"}
		}
		return handlers.Goto(*cmd.Goto)
	case TypePreview:
		if handlers.Preview == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "preview handler not configured"}
		}
		return handlers.Preview(*cmd.Preview)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
