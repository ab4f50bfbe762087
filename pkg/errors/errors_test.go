package errors

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestErrorString(t *testing.T) {
	err := &Error{
		Op:   "capability.Ordinary",
		Kind: KindConfiguration,
		Err:  ErrEmptySet,
	}
	want := "capability.Ordinary [configuration]: capability set is empty"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorWithToken(t *testing.T) {
	err := &Error{
		Op:    "consent.register",
		Kind:  KindDuplicateToken,
		Token: "abc",
		Err:   ErrDuplicateToken,
	}
	if got := err.Error(); !strings.Contains(got, "token=abc") {
		t.Errorf("error string %q should contain %q", got, "token=abc")
	}
}

func TestErrorWithChannel(t *testing.T) {
	err := &Error{
		Op:      "platform.HandleEvent",
		Kind:    KindParsing,
		Channel: "drift/permissions/results",
		Token:   "t1",
		Err:     &ParseError{Channel: "drift/permissions/results", DataType: "ConsentResult", Got: nil},
	}
	want := "platform.HandleEvent [parsing] channel=drift/permissions/results token=t1: " +
		"failed to parse ConsentResult from channel drift/permissions/results: got <nil>"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindConfiguration, "configuration"},
		{KindDuplicateToken, "duplicate_token"},
		{KindPlatform, "platform"},
		{KindParsing, "parsing"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestIsConfiguration(t *testing.T) {
	cfg := Configuration("capability.Ordinary", ErrMixedPathways)
	wrapped := fmt.Errorf("building request: %w", cfg)

	if !IsConfiguration(wrapped) {
		t.Error("expected wrapped configuration error to be detected")
	}
	if !Is(wrapped, ErrMixedPathways) {
		t.Error("expected sentinel to be reachable through Unwrap")
	}
	if IsConfiguration(ErrMixedPathways) {
		t.Error("bare sentinel is not a structured configuration error")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("KindOf(nil) should be KindUnknown")
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "boom", Timestamp: time.Now()}
	if got, want := err.Error(), "panic: boom"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
	err.Op = "dispatcher.onGranted"
	if got, want := err.Error(), "panic in dispatcher.onGranted: boom"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var captured *Error
	handler := &testHandler{onError: func(err *Error) { captured = err }}

	old := DefaultHandler
	SetHandler(handler)
	defer SetHandler(old)

	Report(&Error{Op: "test.op", Kind: KindPlatform, Err: ErrDuplicateToken})

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured.Op != "test.op" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.op")
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportCapturesStack(t *testing.T) {
	var captured *Error
	old := DefaultHandler
	SetHandler(&testHandler{onError: func(err *Error) { captured = err }})
	defer SetHandler(old)

	Report(&Error{Op: "test.op", Kind: KindPlatform, Err: ErrDuplicateToken})
	if captured == nil || !strings.Contains(captured.StackTrace, "TestReportCapturesStack") {
		t.Fatalf("expected stack starting at the caller, got %+v", captured)
	}
	if strings.Contains(captured.StackTrace, "errors.Report\n") {
		t.Error("stack should not include Report itself")
	}

	Report(&Error{Op: "test.op", StackTrace: "preset"})
	if captured.StackTrace != "preset" {
		t.Errorf("StackTrace = %q, want preset kept", captured.StackTrace)
	}
}

func TestLogHandlerVerboseIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	old := DefaultHandler
	SetHandler(&LogHandler{Logger: slog.New(slog.NewTextHandler(&buf, nil)), Verbose: true})
	defer SetHandler(old)

	Report(&Error{Op: "consent.Deliver", Kind: KindParsing})
	if !strings.Contains(buf.String(), "stack=") {
		t.Errorf("verbose log should carry the stack, got %q", buf.String())
	}
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	handler := &testHandler{onPanic: func(err *PanicError) { captured = err }}

	old := DefaultHandler
	SetHandler(handler)
	defer SetHandler(old)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if captured == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if captured.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.recover")
	}
	if captured.StackTrace == "" {
		t.Error("expected stack trace")
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestLogHandlerWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	h.HandleError(&Error{Op: "consent.Deliver", Kind: KindParsing, Token: "t1", Err: ErrEmptySet})
	h.HandlePanic(&PanicError{Op: "dispatcher.onDenied", Value: "boom"})

	out := buf.String()
	for _, want := range []string{"op=consent.Deliver", "kind=parsing", "token=t1", "permissions panic", "value=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q should contain %q", out, want)
		}
	}
}

type testHandler struct {
	onError func(*Error)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *Error) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
