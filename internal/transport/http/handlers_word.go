package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/validation"
)

type wordResponse struct {
	ID          int                 `json:"id"`
	Word        string              `json:"word"`
	Translation string              `json:"translation"`
	LangFrom    validation.Language `json:"langFrom"`
	LangTo      validation.Language `json:"langTo"`
	TypeCode    *string             `json:"typeCode,omitempty"`
	Tag         *string             `json:"tag,omitempty"`
	Attempts    int                 `json:"attempts"`
	Correct     int                 `json:"correct"`
	Accuracy    float64             `json:"accuracy"`
	CreatedAt   string              `json:"createdAt"`
}

func toWordResponse(w *domain.Word) wordResponse {
	return wordResponse{
		ID:          w.ID,
		Word:        w.Word,
		Translation: w.Translation,
		LangFrom:    w.LangFrom,
		LangTo:      w.LangTo,
		TypeCode:    w.TypeCode,
		Tag:         w.Tag,
		Attempts:    w.Attempts,
		Correct:     w.Correct,
		Accuracy:    w.Accuracy(),
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
	}
}

type quizQuestionResponse struct {
	WordID   int                 `json:"wordId"`
	Word     string              `json:"word"`
	LangFrom validation.Language `json:"langFrom"`
	LangTo   validation.Language `json:"langTo"`
}

type quizAnswerResponse struct {
	WordID       int    `json:"wordId"`
	Correct      bool   `json:"correct"`
	Expected     string `json:"expected"`
	Attempts     int    `json:"attempts"`
	CorrectCount int    `json:"correctCount"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Translate.Translate(r.Context(), r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// Word handlers

func (s *Server) handleSearchWords(w http.ResponseWriter, r *http.Request) {
	session, _ := getSession(r.Context())

	page, err := s.deps.Words.SearchWords(r.Context(), session.UserID, r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toPageResponse(page, toWordResponse))
}

func (s *Server) handleSaveWord(w http.ResponseWriter, r *http.Request) {
	session, _ := getSession(r.Context())

	payload, err := readPayload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	word, err := s.deps.Words.SaveWord(r.Context(), session.UserID, payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toWordResponse(word))
}

func (s *Server) handleGetWord(w http.ResponseWriter, r *http.Request) {
	session, _ := getSession(r.Context())

	word, err := s.deps.Words.GetWord(r.Context(), session.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toWordResponse(word))
}

func (s *Server) handleDeleteWord(w http.ResponseWriter, r *http.Request) {
	session, _ := getSession(r.Context())

	if err := s.deps.Words.DeleteWord(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Quiz handlers

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	session, _ := getSession(r.Context())

	questions, err := s.deps.Quiz.NextQuestions(r.Context(), session.UserID, r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]quizQuestionResponse, len(questions))
	for i, q := range questions {
		resp[i] = quizQuestionResponse{WordID: q.WordID, Word: q.Word, LangFrom: q.LangFrom, LangTo: q.LangTo}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"questions": resp})
}

func (s *Server) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	session, _ := getSession(r.Context())

	payload, err := readPayload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	answer, err := s.deps.Quiz.Answer(r.Context(), session.UserID, payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, quizAnswerResponse{
		WordID:       answer.WordID,
		Correct:      answer.Correct,
		Expected:     answer.Expected,
		Attempts:     answer.Attempts,
		CorrectCount: answer.CorrectCount,
	})
}
