package errcode

import (
	"errors"
	"testing"
)

func TestOfExtractsCodes(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("nil should map to OK")
	}
	if Of(InvalidParams) != InvalidParams {
		t.Fatal("bare Code not extracted")
	}
	e := Invalid("tx", "num_symbols must be even")
	if Of(e) != InvalidParams {
		t.Fatalf("wrapped code not extracted: %v", Of(e))
	}
	if Of(errors.New("boom")) != Error {
		t.Fatal("unknown error should map to generic Error")
	}
}

func TestHWWrapsCause(t *testing.T) {
	cause := errors.New("channel alloc failed")
	err := HW("rx_new", cause)
	if Of(err) != Hardware {
		t.Fatalf("want hardware code, got %v", Of(err))
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not preserved through Unwrap")
	}
	if HW("rx_new", nil) != nil {
		t.Fatal("HW(nil) must be nil")
	}
}
