package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeCheck   Type = "check"
	TypeUncheck Type = "uncheck"
	TypeToggle  Type = "toggle"
	TypeGoto    Type = "goto"
	TypePreview Type = "preview"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

const (
	DefaultPreviewCount = 5
	MaxPreviewCount     = 50
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TaskArgs names one task of the active checklist, or every task when All
// is set.
type TaskArgs struct {
	Label string
	All   bool
}

type GotoArgs struct {
	Checklist string
}

type PreviewArgs struct {
	Count int
}

type Command struct {
	Type    Type
	Raw     string
	Task    *TaskArgs
	Goto    *GotoArgs
	Preview *PreviewArgs
}

// Parse reads one palette line such as "/check dishes" or "goto weekly".
// Task labels keep their case and inner spacing; the verb is case-insensitive.
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

	head, rest, _ := strings.Cut(raw, " ")
	head = strings.ToLower(head)
	rest = strings.TrimSpace(rest)

	switch Type(head) {
	case TypeCheck, TypeUncheck:
		return parseTask(input, Type(head), rest, true)
	case TypeToggle:
		return parseTask(input, TypeToggle, rest, false)
	case TypeGoto:
		return parseGoto(input, rest)
	case TypePreview:
		return parsePreview(input, rest)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseTask(raw string, typ Type, rest string, allowAll bool) (Command, error) {
	if rest == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a task label", typ)}
	}
	if allowAll && strings.EqualFold(rest, "all") {
		return Command{Type: typ, Raw: raw, Task: &TaskArgs{All: true}}, nil
	}
	return Command{Type: typ, Raw: raw, Task: &TaskArgs{Label: rest}}, nil
}

func parseGoto(raw, rest string) (Command, error) {
	if rest == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "goto requires a checklist name"}
	}
	return Command{Type: TypeGoto, Raw: raw, Goto: &GotoArgs{Checklist: rest}}, nil
}

func parsePreview(raw, rest string) (Command, error) {
	count := DefaultPreviewCount
	if rest != "" {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 || n > MaxPreviewCount {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("preview count must be 1-%d, got %q", MaxPreviewCount, rest)}
		}
		count = n
	}
	return Command{Type: TypePreview, Raw: raw, Preview: &PreviewArgs{Count: count}}, nil
}
