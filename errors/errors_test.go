package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructorStatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		code    ErrorCode
		status  int
		message string
	}{
		{"validation", Validation("email is required"), ErrCodeInvalidInput, http.StatusBadRequest, "email is required"},
		{"invalid input", InvalidInput("Invalid request body"), ErrCodeInvalidInput, http.StatusBadRequest, "Invalid request body"},
		{"unauthorized", Unauthorized("Authorization header required"), ErrCodeUnauthorized, http.StatusUnauthorized, "Authorization header required"},
		{"invalid credentials", InvalidCredentials(), ErrCodeUnauthorized, http.StatusUnauthorized, "Invalid credentials"},
		{"token expired", TokenExpired(), ErrCodeTokenExpired, http.StatusUnauthorized, "Token expired"},
		{"invalid token", InvalidToken(), ErrCodeInvalidToken, http.StatusUnauthorized, "Invalid token"},
		{"not found", NotFound("User"), ErrCodeNotFound, http.StatusNotFound, "User not found"},
		{"already exists", AlreadyExists("User"), ErrCodeAlreadyExists, http.StatusBadRequest, "User already exists"},
		{"database", DatabaseError(nil), ErrCodeDatabaseError, http.StatusInternalServerError, "Server error"},
		{"oauth login", OAuthLoginFailed(nil), ErrCodeInternal, http.StatusInternalServerError, "Server error during OAuth login"},
		{"internal", Internal(nil), ErrCodeInternal, http.StatusInternalServerError, "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.HTTPStatus)
			}
			if tt.err.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, tt.err.Message)
			}
		})
	}
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	appErr := InvalidToken().WithCause(cause)

	if !stderrors.Is(appErr, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if appErr.Unwrap() != cause {
		t.Errorf("expected Unwrap to return the cause, got %v", appErr.Unwrap())
	}
	if got := appErr.Error(); got != "INVALID_TOKEN: Invalid token (cause: connection refused)" {
		t.Errorf("unexpected error string %q", got)
	}
}

func TestWithDetail(t *testing.T) {
	appErr := Validation("email must be a valid email address").WithDetail("email", "email")
	if appErr.Details["email"] != "email" {
		t.Errorf("unexpected details: %v", appErr.Details)
	}
}

func TestAsAppErrorThroughWrapping(t *testing.T) {
	appErr := TokenExpired()
	wrapped := fmt.Errorf("verify: %w", appErr)

	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to see through the wrap")
	}
	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to see through the wrap")
	}
	if got.Code != ErrCodeTokenExpired {
		t.Errorf("expected code %s, got %s", ErrCodeTokenExpired, got.Code)
	}

	if IsAppError(stderrors.New("plain")) {
		t.Error("plain errors are not AppErrors")
	}
	if _, ok := AsAppError(nil); ok {
		t.Error("nil is not an AppError")
	}
}

func TestToResponseIsFlat(t *testing.T) {
	body := NotFound("User").WithCause(stderrors.New("sql: no rows")).ToResponse()
	if len(body) != 1 || body["message"] != "User not found" {
		t.Errorf("expected flat {message} body, got %v", body)
	}
}
