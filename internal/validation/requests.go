package validation

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Field names of the request payloads below.
const (
	FieldTranslation = "translation"
	FieldCount       = "count"
	FieldAnswer      = "answer"
)

// Quiz sizes.
const (
	DefaultQuizCount = 10
	MaxQuizCount     = 20
)

// LoginData is a validated sign-in request. The password is only checked
// for presence; strength rules apply when it is set, not when it is used.
type LoginData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// WordData is a validated request to save a word to the collection.
type WordData struct {
	Word        string   `json:"word"`
	Translation string   `json:"translation"`
	LangFrom    Language `json:"langFrom"`
	LangTo      Language `json:"langTo"`
	TypeCode    *string  `json:"typeCode,omitempty"`
	Tag         *string  `json:"tag,omitempty"`
}

// QuizParams is a validated quiz request.
type QuizParams struct {
	Count    int       `json:"count"`
	LangFrom *Language `json:"langFrom,omitempty"`
	LangTo   *Language `json:"langTo,omitempty"`
}

// QuizAnswerData is a validated answer to a quiz question.
type QuizAnswerData struct {
	WordID int    `json:"wordId"`
	Answer string `json:"answer"`
}

// ValidateLoginData checks that a sign-in payload has an email and a
// password.
func ValidateLoginData(payload map[string]any) Result[LoginData] {
	var errs Errors
	data := LoginData{Email: collect(&errs, ValidateEmail(payload[FieldEmail]))}

	if password, isString := payload[FieldPassword].(string); isString && password != "" {
		data.Password = password
	} else {
		errs = append(errs, newError(FieldPassword, CodeRequired, "Password is required"))
	}

	if len(errs) > 0 {
		return fail[LoginData](errs...)
	}
	return ok(data)
}

// renameField reports the errors of res under field instead of "word".
func renameField[T any](res Result[T], field, label string) Result[T] {
	for i := range res.Errors {
		res.Errors[i].Field = field
		res.Errors[i].Message = strings.Replace(res.Errors[i].Message, "Word", label, 1)
	}
	return res
}

// ValidateWordData checks a word to save. The translation follows the same
// rules as the word, both languages are required and must differ, and
// typeCode and tag are optional.
func ValidateWordData(payload map[string]any) Result[WordData] {
	var errs Errors
	data := WordData{
		Word:        collect(&errs, ValidateWord(payload[FieldWord])),
		Translation: collect(&errs, renameField(ValidateWord(payload[FieldTranslation]), FieldTranslation, "Translation")),
	}

	from := ValidateLanguageCode(payload[FieldLangFrom], FieldLangFrom)
	to := ValidateLanguageCode(payload[FieldLangTo], FieldLangTo)
	data.LangFrom = collect(&errs, from)
	data.LangTo = collect(&errs, to)
	if from.Success && to.Success && data.LangFrom == data.LangTo {
		errs = append(errs, sameLanguagesError())
	}

	optional := []struct {
		field  string
		maxLen int
		dst    **string
	}{
		{FieldTypeCode, MaxTypeCodeLength, &data.TypeCode},
		{FieldTag, MaxTagLength, &data.Tag},
	}
	for _, o := range optional {
		v := payload[o.field]
		if isMissing(v) {
			continue
		}
		s, isString := v.(string)
		if !isString {
			errs = append(errs, newError(o.field, CodeInvalidType, "%s must be a string", o.field))
			continue
		}
		sanitized, err := sanitizeOptional(s, o.field, o.maxLen)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		*o.dst = sanitized
	}

	if len(errs) > 0 {
		return fail[WordData](errs...)
	}
	return ok(data)
}

// ValidateQuizParams checks the quiz query string: an optional count of
// 1-20 questions (default 10) and optional languages.
func ValidateQuizParams(q url.Values) Result[QuizParams] {
	var errs Errors
	data := QuizParams{
		Count: collect(&errs, validateBoundedInt(queryValue(q, FieldCount), FieldCount,
			DefaultQuizCount, MaxQuizCount, CodeInvalidCount, CodeCountTooLarge)),
	}

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
	if data.LangFrom != nil && data.LangTo != nil && *data.LangFrom == *data.LangTo {
		errs = append(errs, sameLanguagesError())
	}

	if len(errs) > 0 {
		return fail[QuizParams](errs...)
	}
	return ok(data)
}

// ValidateQuizAnswer checks an answer payload. The answer is sanitized but
// not restricted to word characters, so a wrong answer is still graded.
func ValidateQuizAnswer(payload map[string]any) Result[QuizAnswerData] {
	var errs Errors
	data := QuizAnswerData{WordID: collect(&errs, ValidateWordID(payload[FieldWordID]))}

	switch raw := payload[FieldAnswer].(type) {
	case nil:
		errs = append(errs, newError(FieldAnswer, CodeRequired, "Answer is required"))
	case string:
		answer := Sanitize(raw)
		switch {
		case raw == "":
			errs = append(errs, newError(FieldAnswer, CodeRequired, "Answer is required"))
		case answer == "":
			errs = append(errs, newError(FieldAnswer, CodeEmptyAfterSanitization, "Answer is empty after sanitization"))
		case utf8.RuneCountInString(answer) > MaxWordLength:
			errs = append(errs, newError(FieldAnswer, CodeTooLong, "Answer must be at most %d characters", MaxWordLength))
		default:
			data.Answer = answer
		}
	default:
		errs = append(errs, newError(FieldAnswer, CodeInvalidType, "Answer must be a string"))
	}

	if len(errs) > 0 {
		return fail[QuizAnswerData](errs...)
	}
	return ok(data)
}
