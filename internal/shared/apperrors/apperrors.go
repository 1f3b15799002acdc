package apperrors

import (
	"errors"
	"net/http"
)

// Kind is a sentinel error carrying a stable wire code and HTTP status.
type Kind struct {
	Code   string
	Status int
	msg    string
}

func New(code string, status int, msg string) *Kind {
	return &Kind{Code: code, Status: status, msg: msg}
}

func (k *Kind) Error() string { return k.msg }

// Error is the structured {code, message} body surfaced to clients.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const CodeInternal = "Internal"

// Code returns the wire code of the first Kind found in err's chain.
func Code(err error) string {
	var k *Kind
	if errors.As(err, &k) {
		return k.Code
	}
	return CodeInternal
}

func FromError(err error) Error {
	return Error{Code: Code(err), Message: err.Error()}
}

func CheckError(err error) int {
	var k *Kind
	if errors.As(err, &k) && k.Status != 0 {
		return k.Status
	}

	return http.StatusInternalServerError
}
