package translator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/translator"
	"github.com/palabeo/palabeo/internal/validation"
)

func TestClient_Translate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.Equal(t, "hola mundo", r.URL.Query().Get("text"))
		assert.Equal(t, "es", r.URL.Query().Get("from"))
		assert.Equal(t, "fr", r.URL.Query().Get("to"))
		assert.Equal(t, "1", r.URL.Query().Get("v"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":[{"text":"bonjour le monde","type":"phrase"},{"text":"salut"}]}`))
	}))
	t.Cleanup(srv.Close)

	client := translator.NewClient(srv.URL+"/translate?v=1", "secret", time.Second)
	got, err := client.Translate(context.Background(), "hola mundo", validation.LanguageSpanish, validation.LanguageFrench)
	require.NoError(t, err)
	assert.Equal(t, []domain.Translation{
		{Text: "bonjour le monde", Type: "phrase"},
		{Text: "salut"},
	}, got)
}

func TestClient_NoAPIKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Values("X-API-Key"))
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	got, err := translator.NewClient(srv.URL, "", time.Second).
		Translate(context.Background(), "casa", validation.LanguageSpanish, validation.LanguageEnglish)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClient_UpstreamErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"translations":`))
		}},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"translations":[]}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			t.Cleanup(srv.Close)

			client := translator.NewClient(srv.URL, "", 50*time.Millisecond)
			_, err := client.Translate(context.Background(), "casa", validation.LanguageSpanish, validation.LanguageFrench)
			assert.ErrorIs(t, err, domain.ErrUpstream)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	t.Parallel()

	client := translator.NewClient("http://127.0.0.1:1/translate", "", time.Second)
	_, err := client.Translate(context.Background(), "casa", validation.LanguageSpanish, validation.LanguageFrench)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "translation:es:fr:casa", translator.CacheKey("Casa", validation.LanguageSpanish, validation.LanguageFrench))
	assert.NotEqual(t,
		translator.CacheKey("casa", validation.LanguageSpanish, validation.LanguageFrench),
		translator.CacheKey("casa", validation.LanguageFrench, validation.LanguageSpanish),
	)
}

func TestNoopCache(t *testing.T) {
	t.Parallel()

	var c translator.Cache = translator.NoopCache{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []domain.Translation{{Text: "x"}}))
	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_Unreachable(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	c := translator.NewRedisCache(client, time.Hour)
	_, found, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, found)
}
