package validation

import (
	"net/url"
	"unicode/utf8"
)

// Field names for language fields and cross-field errors.
const (
	FieldUserLanguage    = "userLanguage"
	FieldLearnedLanguage = "learnedLanguage"
	FieldFrom            = "from"
	FieldTo              = "to"
	FieldIsReversedLang  = "isReversedLang"
	FieldLangFrom        = "langFrom"
	FieldLangTo          = "langTo"
	FieldTypeCode        = "typeCode"
	FieldTag             = "tag"
	FieldLanguages       = "languages"
	FieldSession         = "session"
	FieldSessionUser     = "session.user"
)

// Defaults for values a payload may omit.
const (
	DefaultUserLanguage    = LanguageEnglish
	DefaultLearnedLanguage = LanguageSpanish
	DefaultTranslateFrom   = LanguageSpanish
	DefaultTranslateTo     = LanguageFrench
	MaxTypeCodeLength      = 20
	MaxTagLength           = 50
)

// RegistrationData is a validated sign-up request.
type RegistrationData struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

// UserCreationData is a validated request to create an account.
type UserCreationData struct {
	Email           string   `json:"email"`
	Name            string   `json:"name"`
	UserLanguage    Language `json:"userLanguage"`
	LearnedLanguage Language `json:"learnedLanguage"`
}

// UserUpdateData is a validated partial update. Nil fields were absent.
type UserUpdateData struct {
	Name            *string   `json:"name,omitempty"`
	Email           *string   `json:"email,omitempty"`
	UserLanguage    *Language `json:"userLanguage,omitempty"`
	LearnedLanguage *Language `json:"learnedLanguage,omitempty"`
}

// Empty reports whether the update changes nothing.
func (d UserUpdateData) Empty() bool {
	return d.Name == nil && d.Email == nil && d.UserLanguage == nil && d.LearnedLanguage == nil
}

// TranslateParams is a validated translation query.
type TranslateParams struct {
	Word           string   `json:"word"`
	From           Language `json:"from"`
	To             Language `json:"to"`
	IsReversedLang bool     `json:"isReversedLang"`
}

// WordsSearchParams is a validated word collection filter. Nil fields
// were absent.
type WordsSearchParams struct {
	LangFrom *Language `json:"langFrom,omitempty"`
	LangTo   *Language `json:"langTo,omitempty"`
	TypeCode *string   `json:"typeCode,omitempty"`
	Tag      *string   `json:"tag,omitempty"`
	Word     *string   `json:"word,omitempty"`
}

// Pagination is a validated page request.
type Pagination struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// collect appends the errors of res to errs and returns res.Data.
func collect[T any](errs *Errors, res Result[T]) T {
	if !res.Success {
		*errs = append(*errs, res.Errors...)
	}
	return res.Data
}

func sameLanguagesError() ValidationError {
	return newError(FieldLanguages, CodeSameLanguages, "Source and target languages must be different")
}

// ValidateRegistrationData checks a sign-up payload. name is optional;
// when absent it is returned as nil. A nil policy means the default policy.
func ValidateRegistrationData(payload map[string]any, policy *PasswordPolicy) Result[RegistrationData] {
	if policy == nil {
		policy = defaultPolicy
	}

	var errs Errors
	data := RegistrationData{
		Email:    collect(&errs, ValidateEmail(payload["email"])),
		Password: collect(&errs, policy.Validate(payload["password"])),
	}
	if v := payload["name"]; !isMissing(v) {
		name := collect(&errs, ValidateUserName(v))
		data.Name = &name
	}

	if len(errs) > 0 {
		return fail[RegistrationData](errs...)
	}
	return ok(data)
}

// ValidateUserCreationData checks an account creation payload. Missing
// languages default to en and es, and the two must differ.
func ValidateUserCreationData(payload map[string]any) Result[UserCreationData] {
	var errs Errors
	data := UserCreationData{
		Email:           collect(&errs, ValidateEmail(payload["email"])),
		Name:            collect(&errs, ValidateUserName(payload["name"])),
		UserLanguage:    DefaultUserLanguage,
		LearnedLanguage: DefaultLearnedLanguage,
	}

	langsValid := true
	if v := payload[FieldUserLanguage]; !isMissing(v) {
		res := ValidateLanguageCode(v, FieldUserLanguage)
		data.UserLanguage = collect(&errs, res)
		langsValid = res.Success
	}
	if v := payload[FieldLearnedLanguage]; !isMissing(v) {
		res := ValidateLanguageCode(v, FieldLearnedLanguage)
		data.LearnedLanguage = collect(&errs, res)
		langsValid = langsValid && res.Success
	}
	if langsValid && data.UserLanguage == data.LearnedLanguage {
		errs = append(errs, sameLanguagesError())
	}

	if len(errs) > 0 {
		return fail[UserCreationData](errs...)
	}
	return ok(data)
}

// ValidateUserUpdateData checks a partial update. Only keys present in
// payload are validated and returned; nothing is defaulted.
func ValidateUserUpdateData(payload map[string]any) Result[UserUpdateData] {
	var errs Errors
	var data UserUpdateData

	if v, present := payload[FieldName]; present {
		if res := ValidateUserName(v); res.Success {
			data.Name = &res.Data
		} else {
			errs = append(errs, res.Errors...)
		}
	}
	if v, present := payload[FieldEmail]; present {
		if res := ValidateEmail(v); res.Success {
			data.Email = &res.Data
		} else {
			errs = append(errs, res.Errors...)
		}
	}
	if v, present := payload[FieldUserLanguage]; present {
		if res := ValidateLanguageCode(v, FieldUserLanguage); res.Success {
			data.UserLanguage = &res.Data
		} else {
			errs = append(errs, res.Errors...)
		}
	}
	if v, present := payload[FieldLearnedLanguage]; present {
		if res := ValidateLanguageCode(v, FieldLearnedLanguage); res.Success {
			data.LearnedLanguage = &res.Data
		} else {
			errs = append(errs, res.Errors...)
		}
	}
	if data.UserLanguage != nil && data.LearnedLanguage != nil && *data.UserLanguage == *data.LearnedLanguage {
		errs = append(errs, sameLanguagesError())
	}

	if len(errs) > 0 {
		return fail[UserUpdateData](errs...)
	}
	return ok(data)
}

// queryValue returns the first value for key, or nil when key is absent.
func queryValue(q url.Values, key string) any {
	if !q.Has(key) {
		return nil
	}
	return q.Get(key)
}

// ValidateTranslateParams checks the translate query string. from and to
// default to es and fr and must differ.
func ValidateTranslateParams(q url.Values) Result[TranslateParams] {
	var errs Errors
	data := TranslateParams{
		Word:           collect(&errs, ValidateWord(queryValue(q, FieldWord))),
		From:           DefaultTranslateFrom,
		To:             DefaultTranslateTo,
		IsReversedLang: collect(&errs, ValidateBoolean(queryValue(q, FieldIsReversedLang), FieldIsReversedLang)),
	}

	langsValid := true
	if v := q.Get(FieldFrom); v != "" {
		res := ValidateLanguageCode(v, FieldFrom)
		data.From = collect(&errs, res)
		langsValid = res.Success
	}
	if v := q.Get(FieldTo); v != "" {
		res := ValidateLanguageCode(v, FieldTo)
		data.To = collect(&errs, res)
		langsValid = langsValid && res.Success
	}
	if langsValid && data.From == data.To {
		errs = append(errs, sameLanguagesError())
	}

	if len(errs) > 0 {
		return fail[TranslateParams](errs...)
	}
	return ok(data)
}

// ValidateWordsSearchParams checks the optional filters of a word search.
func ValidateWordsSearchParams(q url.Values) Result[WordsSearchParams] {
	var errs Errors
	var data WordsSearchParams

	if v := q.Get(FieldLangFrom); v != "" {
		if res := ValidateLanguageCode(v, FieldLangFrom); res.Success {
			data.LangFrom = &res.Data
		} else {
			errs = append(errs, res.Errors...)
		}
	}
	if v := q.Get(FieldLangTo); v != "" {
		if res := ValidateLanguageCode(v, FieldLangTo); res.Success {
			data.LangTo = &res.Data
		} else {
			errs = append(errs, res.Errors...)
		}
	}
	if v := q.Get(FieldTypeCode); v != "" {
		if s, err := sanitizeOptional(v, FieldTypeCode, MaxTypeCodeLength); err != nil {
			errs = append(errs, *err)
		} else {
			data.TypeCode = s
		}
	}
	if v := q.Get(FieldTag); v != "" {
		if s, err := sanitizeOptional(v, FieldTag, MaxTagLength); err != nil {
			errs = append(errs, *err)
		} else {
			data.Tag = s
		}
	}
	if v := q.Get(FieldWord); v != "" {
		if res := ValidateWord(v); res.Success {
			data.Word = &res.Data
		} else {
			errs = append(errs, res.Errors...)
		}
	}

	if len(errs) > 0 {
		return fail[WordsSearchParams](errs...)
	}
	return ok(data)
}

// sanitizeOptional returns nil when nothing is left after sanitizing.
func sanitizeOptional(v, field string, maxLen int) (*string, *ValidationError) {
	s := Sanitize(v)
	if s == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(s) > maxLen {
		err := newError(field, CodeTooLong, "%s must be at most %d characters", field, maxLen)
		return nil, &err
	}
	return &s, nil
}

// ValidatePaginationParams checks page and limit together and computes the
// row offset.
func ValidatePaginationParams(page, limit any) Result[Pagination] {
	var errs Errors
	p := collect(&errs, ValidatePage(page))
	l := collect(&errs, ValidateLimit(limit))
	if len(errs) > 0 {
		return fail[Pagination](errs...)
	}
	return ok(Pagination{Page: p, Limit: l, Offset: (p - 1) * l})
}
