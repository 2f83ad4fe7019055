package domain

import (
	"strings"
	"time"

	"github.com/palabeo/palabeo/internal/validation"
)

// Word is a saved vocabulary entry with its quiz history.
type Word struct {
	ID          int
	UserID      string
	Word        string
	Translation string
	LangFrom    validation.Language
	LangTo      validation.Language
	TypeCode    *string // part of speech reported by the translator
	Tag         *string
	Attempts    int
	Correct     int
	CreatedAt   time.Time
}

// Accuracy returns the share of correct quiz answers, 0 before any attempt.
func (w *Word) Accuracy() float64 {
	if w.Attempts == 0 {
		return 0
	}
	return float64(w.Correct) / float64(w.Attempts)
}

// CheckAnswer compares a sanitized answer with the stored translation,
// ignoring case and surrounding whitespace.
func (w *Word) CheckAnswer(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(w.Translation))
}

// RecordAnswer counts one quiz attempt.
func (w *Word) RecordAnswer(correct bool) {
	w.Attempts++
	if correct {
		w.Correct++
	}
}

// QuizQuestion is a word shown to the learner without its translation.
type QuizQuestion struct {
	WordID   int
	Word     string
	LangFrom validation.Language
	LangTo   validation.Language
}

// QuizAnswer is the outcome of answering one QuizQuestion.
type QuizAnswer struct {
	WordID       int
	Correct      bool
	Expected     string
	Attempts     int
	CorrectCount int
}

// Translation is one candidate returned by the translation proxy.
type Translation struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// TranslationResult is the answer to a translate request. From and To are
// the directions actually used after any reversal.
type TranslationResult struct {
	Word         string              `json:"word"`
	From         validation.Language `json:"from"`
	To           validation.Language `json:"to"`
	Translations []Translation       `json:"translations"`
	Cached       bool                `json:"cached"`
}
