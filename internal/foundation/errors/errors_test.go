package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBuilderDefaults(t *testing.T) {
	err := NewError(CategoryValidation, "title must not be empty").Build()

	if err.Category() != CategoryValidation {
		t.Errorf("expected category %s, got %s", CategoryValidation, err.Category())
	}
	if err.Severity() != SeverityError {
		t.Errorf("expected default severity %s, got %s", SeverityError, err.Severity())
	}
	if err.RetryStrategy() != RetryNever {
		t.Errorf("expected default retry %s, got %s", RetryNever, err.RetryStrategy())
	}
	if err.CanRetry() {
		t.Error("validation errors must never be retryable")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := WrapError(cause, CategoryStorage, "update interval").Retryable().Build()

	if !errors.Is(errors.Unwrap(err), cause) && errors.Unwrap(err) != cause {
		t.Fatalf("expected cause to unwrap, got %v", errors.Unwrap(err))
	}
	if !err.CanRetry() {
		t.Error("storage busy errors should be retryable")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cases := []struct {
		name     string
		err      *ClassifiedError
		category ErrorCategory
		retry    RetryStrategy
	}{
		{"validation", ValidationError("bad duration").Build(), CategoryValidation, RetryNever},
		{"not_found", NotFoundError("interval not found").Build(), CategoryNotFound, RetryNever},
		{"invalid_state", InvalidStateError("cannot cancel a completed interval").Build(), CategoryInvalidState, RetryNever},
		{"conflict", ConflictError("an interval is already running").Build(), CategoryConflict, RetryUserAction},
		{"storage", StorageError("database is locked").Build(), CategoryStorage, RetryBackoff},
	}
	for _, tc := range cases {
		if tc.err.Category() != tc.category {
			t.Errorf("%s: expected category %s, got %s", tc.name, tc.category, tc.err.Category())
		}
		if tc.err.RetryStrategy() != tc.retry {
			t.Errorf("%s: expected retry %s, got %s", tc.name, tc.retry, tc.err.RetryStrategy())
		}
	}
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := NotFoundError("interval not found").Build()
	derived := base.WithContext("interval_id", "abc")

	if _, ok := base.Context().Get("interval_id"); ok && len(base.Context()) > 0 && derived == base {
		t.Error("WithContext must return a new error value")
	}
	if v, _ := derived.Context().GetString("interval_id"); v != "abc" {
		t.Errorf("expected context interval_id=abc, got %q", v)
	}
}

func TestHTTPAdapterStatusCodes(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	cases := []struct {
		err  error
		code int
	}{
		{nil, http.StatusOK},
		{ValidationError("bad").Build(), http.StatusBadRequest},
		{AuthError("missing owner").Build(), http.StatusUnauthorized},
		{NotFoundError("missing").Build(), http.StatusNotFound},
		{ConflictError("already running").Build(), http.StatusConflict},
		{InvalidStateError("cannot pause").Build(), http.StatusUnprocessableEntity},
		{StorageError("locked").Build(), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := a.StatusCodeFor(tc.err); got != tc.code {
			t.Errorf("StatusCodeFor(%v): expected %d, got %d", tc.err, tc.code, got)
		}
	}
}

func TestHTTPAdapterWritesJSONPayload(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intervals", nil)

	err := ConflictError("an interval is already running; pause or complete it first").
		WithContext("owner_id", "user-1").
		Build()
	a.WriteErrorResponse(rec, req, err)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	body := rec.Body.String()
	if body == "" {
		t.Fatal("expected a JSON body")
	}
}

func TestCLIAdapterExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	if code := a.ExitCodeFor(nil); code != 0 {
		t.Errorf("nil error: expected 0, got %d", code)
	}
	if code := a.ExitCodeFor(ConfigError("bad yaml").Build()); code != 7 {
		t.Errorf("config error: expected 7, got %d", code)
	}
	if code := a.ExitCodeFor(errors.New("plain")); code != 1 {
		t.Errorf("plain error: expected 1, got %d", code)
	}
}
