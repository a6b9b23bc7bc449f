package protocol

import "fmt"

const (
	// Line-level validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrUnknownVerb     = "E_UNKNOWN_VERB"
	ErrBadArity        = "E_BAD_ARITY"
	ErrOutOfRange      = "E_OUT_OF_RANGE"

	// World/selection state.
	ErrPrecondition    = "E_PRECONDITION"
	ErrNoSelection     = "E_NO_SELECTION"
	ErrReplayExhausted = "E_REPLAY_EXHAUSTED"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrUnknownVerb:     {},
	ErrBadArity:        {},
	ErrOutOfRange:      {},
	ErrPrecondition:    {},
	ErrNoSelection:     {},
	ErrReplayExhausted: {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Error is a recoverable rejection of one command line. The engine logs it
// and carries on; world state is left as it was.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Code + ": " + e.Msg }

func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}
