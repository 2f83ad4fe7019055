package service

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/metrics"
	"github.com/palabeo/palabeo/internal/translator"
	"github.com/palabeo/palabeo/internal/validation"
)

// Translator looks up translations of a word. translator.Client
// implements it.
type Translator interface {
	Translate(ctx context.Context, text string, from, to validation.Language) ([]domain.Translation, error)
}

// TranslateService proxies translation requests through a cache.
type TranslateService struct {
	translator Translator
	cache      translator.Cache
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// NewTranslateService creates the service. cache and collector may be nil.
func NewTranslateService(t Translator, cache translator.Cache, collector *metrics.Collector, logger *slog.Logger) *TranslateService {
	if cache == nil {
		cache = translator.NoopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TranslateService{translator: t, cache: cache, metrics: collector, logger: logger}
}

// Translate validates the query and returns the translations. With
// isReversedLang the from and to languages are swapped first. Cache
// failures are logged and the proxy is asked instead.
func (s *TranslateService) Translate(ctx context.Context, q url.Values) (*domain.TranslationResult, error) {
	res := validation.ValidateTranslateParams(q)
	if !res.Success {
		return nil, res.Errors
	}

	from, to := res.Data.From, res.Data.To
	if res.Data.IsReversedLang {
		from, to = to, from
	}
	result := &domain.TranslationResult{Word: res.Data.Word, From: from, To: to}

	key := translator.CacheKey(res.Data.Word, from, to)
	cached, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "translation cache read failed", slog.String("error", err.Error()))
	}
	if found {
		s.metrics.Translation(metrics.TranslationHit)
		result.Translations = cached
		result.Cached = true
		return result, nil
	}

	translations, err := s.translator.Translate(ctx, res.Data.Word, from, to)
	if err != nil {
		s.metrics.Translation(metrics.TranslationError)
		return nil, err
	}
	s.metrics.Translation(metrics.TranslationMiss)

	if err := s.cache.Set(ctx, key, translations); err != nil {
		s.logger.WarnContext(ctx, "translation cache write failed", slog.String("error", err.Error()))
	}

	result.Translations = translations
	return result, nil
}
