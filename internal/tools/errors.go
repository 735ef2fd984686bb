package tools

import "errors"

// Tool registry/dispatch errors.
var (
	ErrToolNotFound          = errors.New("tool not found")
	ErrToolNameEmpty         = errors.New("tool name cannot be empty")
	ErrToolExecuteNil        = errors.New("tool execute function cannot be nil")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrMissingRequiredArg    = errors.New("missing required argument")
	ErrInvalidArgType        = errors.New("invalid argument type")
	ErrToolDenied            = errors.New("tool is denied")
)
