package validation

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field names used in error reports.
const (
	FieldWord     = "word"
	FieldEmail    = "email"
	FieldName     = "name"
	FieldUserID   = "userId"
	FieldWordID   = "wordId"
	FieldPage     = "page"
	FieldLimit    = "limit"
	FieldRole     = "role"
	FieldPassword = "password"
)

// Limits applied by the field validators.
const (
	MaxWordLength  = 100
	MaxNameLength  = 100
	MaxEmailLength = 254
	MaxWordID      = math.MaxInt32
	DefaultPage    = 1
	MaxPage        = 10000
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Language is a language code the application can translate between.
type Language string

const (
	LanguageSpanish Language = "es"
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
)

// SupportedLanguages lists every accepted Language.
var SupportedLanguages = []Language{LanguageSpanish, LanguageFrench, LanguageEnglish}

// Valid reports whether l is one of SupportedLanguages.
func (l Language) Valid() bool {
	switch l {
	case LanguageSpanish, LanguageFrench, LanguageEnglish:
		return true
	}
	return false
}

// Role is the access level of a user account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

var (
	// Checked against the raw input so markup is reported rather than
	// silently stripped. Whitespace includes Unicode separators such as
	// NBSP, not only ASCII.
	wordRegex  = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s\p{Z}\x{FEFF}\-']+$`)
	nameRegex  = regexp.MustCompile(`^[\p{L}\p{M}\s\p{Z}\x{FEFF}\-']+$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	cuidRegex  = regexp.MustCompile(`^c[a-z0-9]{24}$`)
	digitRegex = regexp.MustCompile(`^[0-9]+$`)
)

// isMissing treats nil and the empty string as absent.
func isMissing(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// ValidateWord checks a vocabulary word: letters (including Latin-1
// accented letters), spaces, hyphens and apostrophes, 1-100 characters.
func ValidateWord(value any) Result[string] {
	if isMissing(value) {
		return fail[string](newError(FieldWord, CodeRequired, "Word is required"))
	}
	raw, isString := value.(string)
	if !isString {
		return fail[string](newError(FieldWord, CodeInvalidType, "Word must be a string"))
	}
	if !wordRegex.MatchString(raw) {
		return fail[string](newError(FieldWord, CodeInvalidCharacters,
			"Word can only contain letters, spaces, hyphens and apostrophes"))
	}

	word := Sanitize(raw)
	if word == "" {
		return fail[string](newError(FieldWord, CodeEmptyAfterSanitization, "Word is empty after sanitization"))
	}
	n := utf8.RuneCountInString(word)
	if n < 1 {
		return fail[string](newError(FieldWord, CodeTooShort, "Word must be at least 1 character"))
	}
	if n > MaxWordLength {
		return fail[string](newError(FieldWord, CodeTooLong, "Word must be at most %d characters", MaxWordLength))
	}
	return ok(word)
}

// ValidateLanguageCode checks that value names a supported language and
// returns its lowercase form. field is used in error reports.
func ValidateLanguageCode(value any, field string) Result[Language] {
	if isMissing(value) {
		return fail[Language](newError(field, CodeRequired, "%s is required", field))
	}
	if _, ok := value.(string); !ok {
		return fail[Language](newError(field, CodeInvalidType, "%s must be a string", field))
	}

	lang := Language(strings.ToLower(Sanitize(value)))
	if !lang.Valid() {
		return fail[Language](newError(field, CodeUnsupportedLanguage,
			"%s must be one of: es, fr, en", field))
	}
	return ok(lang)
}

// ValidateBoolean accepts a bool or the strings "true"/"false" in any case.
// A nil value defaults to false.
func ValidateBoolean(value any, field string) Result[bool] {
	switch v := value.(type) {
	case nil:
		return ok(false)
	case bool:
		return ok(v)
	case string:
		switch strings.ToLower(Sanitize(v)) {
		case "true":
			return ok(true)
		case "false":
			return ok(false)
		}
	}
	return fail[bool](newError(field, CodeInvalidType, "%s must be a boolean", field))
}

// ValidateEmail checks the shape of an email address and returns it
// sanitized and lowercased.
func ValidateEmail(value any) Result[string] {
	raw, isString := value.(string)
	if !isString || raw == "" {
		return fail[string](newError(FieldEmail, CodeRequired, "Email is required"))
	}

	email := strings.ToLower(Sanitize(raw))
	if !emailRegex.MatchString(email) {
		return fail[string](newError(FieldEmail, CodeInvalidEmailFormat, "Invalid email format"))
	}
	if len(email) > MaxEmailLength {
		return fail[string](newError(FieldEmail, CodeTooLong, "Email must be at most %d characters", MaxEmailLength))
	}
	return ok(email)
}

// ValidateUserName checks a display name. The character check runs on the
// sanitized value, so anything other than letters, spaces, hyphens and
// apostrophes left after sanitization is rejected.
func ValidateUserName(value any) Result[string] {
	raw, isString := value.(string)
	if !isString || raw == "" {
		return fail[string](newError(FieldName, CodeRequired, "Name is required"))
	}

	name := Sanitize(raw)
	if name == "" {
		return fail[string](newError(FieldName, CodeRequired, "Name is required"))
	}
	if !nameRegex.MatchString(name) {
		return fail[string](newError(FieldName, CodeInvalidCharacters,
			"Name can only contain letters, spaces, hyphens and apostrophes"))
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fail[string](newError(FieldName, CodeTooLong, "Name must be at most %d characters", MaxNameLength))
	}
	return ok(name)
}

// ValidateUserID checks that value is a CUID: a "c" followed by 24
// lowercase alphanumerics. The lowercased ID is returned.
func ValidateUserID(value any) Result[string] {
	if isMissing(value) {
		return fail[string](newError(FieldUserID, CodeRequired, "User ID is required"))
	}
	raw, isString := value.(string)
	if !isString {
		return fail[string](newError(FieldUserID, CodeInvalidType, "User ID must be a string"))
	}

	id := strings.ToLower(raw)
	if !cuidRegex.MatchString(id) {
		return fail[string](newError(FieldUserID, CodeInvalidCUIDFormat, "Invalid user ID format"))
	}
	return ok(id)
}

type numberKind int

const (
	numberOK numberKind = iota
	numberWrongType
	numberMalformed
	numberOverflow
)

// parseWholeNumber reads an integer from a digit string or a numeric value
// without a fractional part. Negative numbers parse; negative strings do not.
func parseWholeNumber(value any) (int64, numberKind) {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if !digitRegex.MatchString(s) {
			return 0, numberMalformed
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, numberOverflow
		}
		return n, numberOK
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, numberOK
		}
		f, err := v.Float64()
		if err != nil {
			return 0, numberMalformed
		}
		return parseWholeNumber(f)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, numberMalformed
		}
		if v >= math.MaxInt64 {
			return 0, numberOverflow
		}
		if v <= math.MinInt64 {
			return 0, numberMalformed
		}
		return int64(v), numberOK
	case float32:
		return parseWholeNumber(float64(v))
	case int:
		return int64(v), numberOK
	case int32:
		return int64(v), numberOK
	case int64:
		return v, numberOK
	case uint32:
		return int64(v), numberOK
	case uint64:
		if v > math.MaxInt64 {
			return 0, numberOverflow
		}
		return int64(v), numberOK
	}
	return 0, numberWrongType
}

// ValidateWordID checks a word identifier given as a string or a number.
// It must be a whole number between 1 and 2147483647.
func ValidateWordID(value any) Result[int] {
	if isMissing(value) {
		return fail[int](newError(FieldWordID, CodeRequired, "Word ID is required"))
	}

	n, kind := parseWholeNumber(value)
	switch {
	case kind == numberWrongType:
		return fail[int](newError(FieldWordID, CodeInvalidType, "Word ID must be a string or a number"))
	case kind == numberOverflow, kind == numberOK && n > MaxWordID:
		return fail[int](newError(FieldWordID, CodeWordIDTooLarge, "Word ID must be at most %d", MaxWordID))
	case kind == numberMalformed, n <= 0:
		return fail[int](newError(FieldWordID, CodeInvalidWordIDFormat, "Word ID must be a positive integer"))
	}
	return ok(int(n))
}

// ValidatePage checks an optional page number, defaulting to 1.
func ValidatePage(value any) Result[int] {
	return validateBoundedInt(value, FieldPage, DefaultPage, MaxPage, CodeInvalidPage, CodePageTooLarge)
}

// ValidateLimit checks an optional page size, defaulting to 20.
func ValidateLimit(value any) Result[int] {
	return validateBoundedInt(value, FieldLimit, DefaultLimit, MaxLimit, CodeInvalidLimit, CodeLimitTooLarge)
}

func validateBoundedInt(value any, field string, def, limit int, invalidCode, tooLargeCode string) Result[int] {
	if isMissing(value) {
		return ok(def)
	}

	n, kind := parseWholeNumber(value)
	switch {
	case kind == numberOverflow, kind == numberOK && n > int64(limit):
		return fail[int](newError(field, tooLargeCode, "%s must be at most %d", field, limit))
	case kind != numberOK, n <= 0:
		return fail[int](newError(field, invalidCode, "%s must be a positive integer", field))
	}
	return ok(int(n))
}

// ValidateRole checks that value names a Role and returns it uppercased.
func ValidateRole(value any) Result[Role] {
	raw, isString := value.(string)
	if !isString || raw == "" {
		return fail[Role](newError(FieldRole, CodeRequired, "Role is required"))
	}

	role := Role(strings.ToUpper(Sanitize(raw)))
	if !role.Valid() {
		return fail[Role](newError(FieldRole, CodeInvalidRole, "Role must be USER or ADMIN"))
	}
	return ok(role)
}

// IsAdminRole reports whether role is "ADMIN" in any case. Anything else,
// including nil, is not an admin.
func IsAdminRole(role any) bool {
	var s string
	switch v := role.(type) {
	case string:
		s = v
	case Role:
		s = string(v)
	default:
		return false
	}
	return strings.EqualFold(s, string(RoleAdmin))
}
