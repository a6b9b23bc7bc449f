package protocol

import (
	"errors"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrUnknownVerb,
		ErrBadArity,
		ErrOutOfRange,
		ErrPrecondition,
		ErrNoSelection,
		ErrReplayExhausted,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestErrorf_WrapsAndMatches(t *testing.T) {
	var err error = Errorf(ErrOutOfRange, "value %d", 300)
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("errors.As failed")
	}
	if pe.Code != ErrOutOfRange || pe.Msg != "value 300" {
		t.Fatalf("got=%+v", pe)
	}
	if err.Error() != "E_OUT_OF_RANGE: value 300" {
		t.Fatalf("Error()=%q", err.Error())
	}
}
