package service

import (
	"context"
	"net/url"
	"time"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/event"
	"github.com/palabeo/palabeo/internal/storage"
	"github.com/palabeo/palabeo/internal/validation"
)

// WordService manages a user's word collection.
type WordService struct {
	words     storage.WordRepository
	publisher event.Publisher
}

func NewWordService(words storage.WordRepository, publisher event.Publisher) *WordService {
	return &WordService{words: words, publisher: publisher}
}

// SaveWord adds a word to the user's collection.
func (s *WordService) SaveWord(ctx context.Context, userID string, payload map[string]any) (*domain.Word, error) {
	res := validation.ValidateWordData(payload)
	if !res.Success {
		return nil, res.Errors
	}

	word := &domain.Word{
		UserID:      userID,
		Word:        res.Data.Word,
		Translation: res.Data.Translation,
		LangFrom:    res.Data.LangFrom,
		LangTo:      res.Data.LangTo,
		TypeCode:    res.Data.TypeCode,
		Tag:         res.Data.Tag,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.words.Create(ctx, word); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.WordSavedEvent(word))

	return word, nil
}

// GetWord returns one of the user's words. id is the raw path value.
func (s *WordService) GetWord(ctx context.Context, userID string, id any) (*domain.Word, error) {
	res := validation.ValidateWordID(id)
	if !res.Success {
		return nil, res.Errors
	}
	return s.words.GetByID(ctx, userID, res.Data)
}

// DeleteWord removes one of the user's words.
func (s *WordService) DeleteWord(ctx context.Context, userID string, id any) error {
	res := validation.ValidateWordID(id)
	if !res.Success {
		return res.Errors
	}

	if err := s.words.Delete(ctx, userID, res.Data); err != nil {
		return err
	}

	_ = s.publisher.Publish(ctx, domain.WordDeletedEvent(userID, res.Data))

	return nil
}

// SearchWords lists the user's words matching the query's filters, one
// page at a time. Filter and pagination errors are reported together.
func (s *WordService) SearchWords(ctx context.Context, userID string, q url.Values) (*Page[domain.Word], error) {
	filterRes := validation.ValidateWordsSearchParams(q)
	pageRes := validation.ValidatePaginationParams(queryValue(q, validation.FieldPage), queryValue(q, validation.FieldLimit))
	if errs := append(append(validation.Errors{}, filterRes.Errors...), pageRes.Errors...); len(errs) > 0 {
		return nil, errs
	}

	words, total, err := s.words.Search(ctx, userID, storage.WordFilter{
		WordsSearchParams: filterRes.Data,
		Offset:            pageRes.Data.Offset,
		Limit:             pageRes.Data.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &Page[domain.Word]{Items: words, Total: total, Pagination: pageRes.Data}, nil
}

// queryValue returns nil for absent keys so validators apply defaults.
func queryValue(q url.Values, key string) any {
	if !q.Has(key) {
		return nil
	}
	return q.Get(key)
}
