// Package validation checks and normalizes untrusted input before it reaches
// the services and the database.
//
// Field validators (ValidateWord, ValidateEmail, ValidateWordID, ...) stop at
// the first failing rule and return a Result carrying a single
// ValidationError. Composite validators (ValidateRegistrationData,
// ValidateTranslateParams, ValidateSession, ...) run every field validator for
// a payload and collect all errors, so a client can fix every problem in one
// round trip.
//
// A Result is either successful, with sanitized Data and an empty error list,
// or failed, with at least one error and zero-valued Data. Validators never
// panic on bad input and hold no shared mutable state, so they are safe to
// call from any goroutine.
//
// Handlers turn failures into the API error body with
// CreateValidationErrorResponse:
//
//	res := validation.ValidateTranslateParams(r.URL.Query())
//	if !res.Success {
//		writeJSON(w, http.StatusBadRequest, validation.CreateValidationErrorResponse(res.Errors))
//		return
//	}
package validation
