package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password any policy accepts.
const MinPasswordLength = 8

// DefaultCommonPasswords is the built-in denylist used when no list is
// configured.
var DefaultCommonPasswords = []string{
	"password", "password1", "password123", "password123!", "passw0rd",
	"123456", "12345678", "123456789", "1234567890", "qwerty", "qwerty123",
	"azerty", "azerty123", "abc123", "letmein", "welcome", "welcome123",
	"admin", "admin123", "iloveyou", "monkey", "dragon", "sunshine",
	"football", "motdepasse", "contrasena", "contraseña",
}

// PasswordPolicy holds the rules a new password must satisfy. The zero
// value has an empty denylist; use NewPasswordPolicy.
type PasswordPolicy struct {
	common map[string]struct{}
}

// NewPasswordPolicy builds a policy whose denylist is commonPasswords,
// compared case-insensitively.
func NewPasswordPolicy(commonPasswords []string) *PasswordPolicy {
	common := make(map[string]struct{}, len(commonPasswords))
	for _, p := range commonPasswords {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			common[p] = struct{}{}
		}
	}
	return &PasswordPolicy{common: common}
}

var defaultPolicy = NewPasswordPolicy(DefaultCommonPasswords)

// DefaultPasswordPolicy returns the policy built from DefaultCommonPasswords.
func DefaultPasswordPolicy() *PasswordPolicy {
	return defaultPolicy
}

// Size returns the number of denylisted passwords.
func (p *PasswordPolicy) Size() int {
	return len(p.common)
}

// ValidatePassword checks value against the default policy.
func ValidatePassword(value any) Result[string] {
	return defaultPolicy.Validate(value)
}

// Validate checks every strength rule and reports each one that fails.
// The password is returned unchanged on success; it is never sanitized.
func (p *PasswordPolicy) Validate(value any) Result[string] {
	password, isString := value.(string)
	if !isString || password == "" {
		return fail[string](newError(FieldPassword, CodeRequired, "Password is required"))
	}

	var errs Errors
	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs = append(errs, newError(FieldPassword, CodeTooShort,
			"Password must be at least %d characters", MinPasswordLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		errs = append(errs, newError(FieldPassword, CodeMissingUppercase,
			"Password must contain at least one uppercase letter"))
	}
	if !hasLower {
		errs = append(errs, newError(FieldPassword, CodeMissingLowercase,
			"Password must contain at least one lowercase letter"))
	}
	if !hasDigit {
		errs = append(errs, newError(FieldPassword, CodeMissingNumber,
			"Password must contain at least one number"))
	}
	if !hasSpecial {
		errs = append(errs, newError(FieldPassword, CodeMissingSpecialChar,
			"Password must contain at least one special character"))
	}

	if _, found := p.common[strings.ToLower(password)]; found {
		errs = append(errs, newError(FieldPassword, CodeCommonPassword,
			"Password is too common"))
	}
	if hasRepeatedRun(password, 4) {
		errs = append(errs, newError(FieldPassword, CodeRepeatedChars,
			"Password must not contain 4 or more identical characters in a row"))
	}

	if len(errs) > 0 {
		return fail[string](errs...)
	}
	return ok(password)
}

// hasRepeatedRun reports whether s contains n identical runes in a row.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}
