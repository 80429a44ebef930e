package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}

	if panicErr.Operation != "TestOperation" {
		t.Errorf("Expected operation 'TestOperation', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	expectedMsg := "panic in TestOperation: test panic message"
	if panicErr.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, panicErr.Error())
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = originalErr
		panic("boom")
	}

	err := testFunc()
	if !errors.Is(err, originalErr) {
		t.Errorf("expected original error to stay in the chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "panic in TestOperation: boom") {
		t.Errorf("expected panic context in message, got %v", err)
	}
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name    string
		fn      func() error
		wantErr string
		isPanic bool
	}{
		{
			name: "success",
			fn:   func() error { return nil },
		},
		{
			name:    "function error",
			fn:      func() error { return fmt.Errorf("plain failure") },
			wantErr: "plain failure",
		},
		{
			name:    "string panic",
			fn:      func() error { panic("unexpected nil pointer") },
			wantErr: "panic in Op: unexpected nil pointer",
			isPanic: true,
		},
		{
			name:    "error panic",
			fn:      func() error { panic(fmt.Errorf("mat: dimension mismatch")) },
			wantErr: "panic in Op: mat: dimension mismatch",
			isPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("Op", tt.fn)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("got %v, want %q", err, tt.wantErr)
			}
			var panicErr *PanicError
			if got := errors.As(err, &panicErr); got != tt.isPanic {
				t.Errorf("errors.As(*PanicError) = %v, want %v", got, tt.isPanic)
			}
		})
	}
}

func TestPanicError_UnwrapsErrorValue(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := SafeExecute("Op", func() error { panic(cause) })

	if !errors.Is(err, cause) {
		t.Error("expected panic error value to be reachable with errors.Is")
	}
}
