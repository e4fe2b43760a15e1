package response

import (
	"errors"
	"strings"
)

type Response struct {
	ResponseError `json:"error,omitzero"`
	Warning       string `json:"warning,omitempty"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST      ErrCode = "REQUEST_FAILED"
	BAD_REQUEST         ErrCode = "FAILED_TO_DECODE"
	VALIDATION          ErrCode = "VALIDATION_ERROR"
	NOT_FOUND           ErrCode = "NOT_FOUND"
	LOCKED              ErrCode = "LOCKED"
	CONFLICT            ErrCode = "CONFLICT"
	UNAUTHORIZED        ErrCode = "UNAUTHORIZED"
	INVALID_CREDENTIALS ErrCode = "INVALID_CREDENTIALS"
	ACCOUNT_INACTIVE    ErrCode = "ACCOUNT_INACTIVE"
	NOT_ADMIN           ErrCode = "NOT_ADMIN"
	OFFLINE             ErrCode = "OFFLINE"
	PERMISSION_DENIED   ErrCode = "PERMISSION_DENIED"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("resource not found")
	ErrLocked             = errors.New("resource is locked")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("account is inactive")
	ErrNotAdmin           = errors.New("account does not have admin privileges")
	ErrOffline            = errors.New("backend is offline")
	ErrPermission         = errors.New("permission denied")
)

// User-facing messages shared by handlers.
const (
	MsgSavedLocally   = "Changes saved locally. Will sync when connection is restored."
	MsgOfflineCached  = "Operating in offline mode. Showing cached data."
	MsgSampleData     = "Unable to load live data. Showing sample data."
	MsgConnectionLost = "Connection lost. Operating in offline mode."
	MsgNoConnection   = "Unable to connect to database. Please check your internet connection."
)

func Error(code, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    code,
			Message: msg,
		},
	}
}

// ValidationMessage returns the user-facing part of a validation error.
func ValidationMessage(err error) string {
	var fe interface{ FieldMessage() string }
	if errors.As(err, &fe) {
		return fe.FieldMessage()
	}

	if _, msg, ok := strings.Cut(err.Error(), ErrValidation.Error()+": "); ok {
		return msg
	}

	return "invalid request"
}
