package errors

import (
	stderrors "errors"
)

// ToResponse renders the error as the portal's flat wire body. The frontend
// consumes {"message": ...} on every endpoint; codes and details stay
// server-side.
func (e *AppError) ToResponse() map[string]string {
	return map[string]string{"message": e.Message}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
