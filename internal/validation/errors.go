package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error codes reported in ValidationError.Code. Clients match on these, so
// they must never change.
const (
	CodeRequired               = "REQUIRED"
	CodeInvalidType            = "INVALID_TYPE"
	CodeInvalidCharacters      = "INVALID_CHARACTERS"
	CodeEmptyAfterSanitization = "EMPTY_AFTER_SANITIZATION"
	CodeTooShort               = "TOO_SHORT"
	CodeTooLong                = "TOO_LONG"
	CodeUnsupportedLanguage    = "UNSUPPORTED_LANGUAGE"
	CodeSameLanguages          = "SAME_LANGUAGES"
	CodeInvalidEmailFormat     = "INVALID_EMAIL_FORMAT"
	CodeInvalidCUIDFormat      = "INVALID_CUID_FORMAT"
	CodeInvalidWordIDFormat    = "INVALID_WORD_ID_FORMAT"
	CodeWordIDTooLarge         = "WORD_ID_TOO_LARGE"
	CodeInvalidPage            = "INVALID_PAGE"
	CodePageTooLarge           = "PAGE_TOO_LARGE"
	CodeInvalidLimit           = "INVALID_LIMIT"
	CodeLimitTooLarge          = "LIMIT_TOO_LARGE"
	CodeInvalidRole            = "INVALID_ROLE"
	CodeMissingUppercase       = "MISSING_UPPERCASE"
	CodeMissingLowercase       = "MISSING_LOWERCASE"
	CodeMissingNumber          = "MISSING_NUMBER"
	CodeMissingSpecialChar     = "MISSING_SPECIAL_CHAR"
	CodeCommonPassword         = "COMMON_PASSWORD"
	CodeRepeatedChars          = "REPEATED_CHARS"
	CodeInvalidCount           = "INVALID_COUNT"
	CodeCountTooLarge          = "COUNT_TOO_LARGE"
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is the list of problems found in one payload.
type Errors []ValidationError

func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(ve))
	for _, e := range ve {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether any error was recorded for field.
func (ve Errors) Has(field string) bool {
	for _, e := range ve {
		if e.Field == field {
			return true
		}
	}
	return false
}

// HasCode reports whether any error carries code.
func (ve Errors) HasCode(code string) bool {
	for _, e := range ve {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Codes returns the codes in the order they were recorded.
func (ve Errors) Codes() []string {
	codes := make([]string, len(ve))
	for i, e := range ve {
		codes[i] = e.Code
	}
	return codes
}

// Result is the outcome of a validator. Success is true exactly when Errors
// is empty, and Data is only meaningful on success.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Errors  Errors `json:"errors"`
}

// Err returns nil on success and the collected Errors otherwise.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return r.Errors
}

// MarshalJSON writes data exactly when the result is successful, including
// zero values such as false or "".
func (r Result[T]) MarshalJSON() ([]byte, error) {
	errs := r.Errors
	if errs == nil {
		errs = Errors{}
	}
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Errors  Errors `json:"errors"`
		}{Errors: errs})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Data    T      `json:"data"`
		Errors  Errors `json:"errors"`
	}{Success: true, Data: r.Data, Errors: errs})
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data, Errors: Errors{}}
}

func fail[T any](errs ...ValidationError) Result[T] {
	return Result[T]{Errors: errs}
}

func newError(field, code, format string, args ...any) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code}
}

// ErrorResponse is the JSON body returned by every API route when input
// fails validation.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details Errors `json:"details"`
	Message string `json:"message"`
}

// CreateValidationErrorResponse builds the API error body for errs.
func CreateValidationErrorResponse(errs Errors) ErrorResponse {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+": "+e.Message)
	}
	if errs == nil {
		errs = Errors{}
	}
	return ErrorResponse{
		Error:   "Validation failed",
		Details: errs,
		Message: strings.Join(parts, ", "),
	}
}
