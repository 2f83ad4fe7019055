package service

import (
	"context"
	"net/url"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/event"
	"github.com/palabeo/palabeo/internal/storage"
	"github.com/palabeo/palabeo/internal/validation"
)

// QuizService asks a user about words from their collection.
type QuizService struct {
	words     storage.WordRepository
	publisher event.Publisher
}

func NewQuizService(words storage.WordRepository, publisher event.Publisher) *QuizService {
	return &QuizService{words: words, publisher: publisher}
}

// NextQuestions picks up to count words to ask about. It fails with
// domain.ErrEmptyCollection when nothing matches.
func (s *QuizService) NextQuestions(ctx context.Context, userID string, q url.Values) ([]domain.QuizQuestion, error) {
	res := validation.ValidateQuizParams(q)
	if !res.Success {
		return nil, res.Errors
	}

	words, err := s.words.Random(ctx, userID, storage.QuizFilter{
		LangFrom: res.Data.LangFrom,
		LangTo:   res.Data.LangTo,
		Count:    res.Data.Count,
	})
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, domain.ErrEmptyCollection
	}

	questions := make([]domain.QuizQuestion, len(words))
	for i, w := range words {
		questions[i] = domain.QuizQuestion{
			WordID:   w.ID,
			Word:     w.Word,
			LangFrom: w.LangFrom,
			LangTo:   w.LangTo,
		}
	}
	return questions, nil
}

// Answer grades an answer and records the attempt.
func (s *QuizService) Answer(ctx context.Context, userID string, payload map[string]any) (*domain.QuizAnswer, error) {
	res := validation.ValidateQuizAnswer(payload)
	if !res.Success {
		return nil, res.Errors
	}

	word, err := s.words.GetByID(ctx, userID, res.Data.WordID)
	if err != nil {
		return nil, err
	}

	correct := word.CheckAnswer(res.Data.Answer)
	updated, err := s.words.RecordAnswer(ctx, userID, word.ID, correct)
	if err != nil {
		return nil, err
	}

	answer := &domain.QuizAnswer{
		WordID:       updated.ID,
		Correct:      correct,
		Expected:     updated.Translation,
		Attempts:     updated.Attempts,
		CorrectCount: updated.Correct,
	}

	_ = s.publisher.Publish(ctx, domain.QuizAnsweredEvent(userID, *answer))

	return answer, nil
}
