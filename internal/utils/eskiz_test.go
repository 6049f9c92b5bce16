package utils

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weel-backend/internal/cache"
	"weel-backend/internal/config"
)

func newTestEskiz(store cache.Store) *EskizClient {
	return NewEskizClient(&config.EskizConfig{
		Email:    "test@example.com",
		Password: "secret",
		From:     "4546",
	}, store)
}

func TestEskizGetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("cached token is reused without login", func(t *testing.T) {
		store := cache.NewMemoryStore()
		require.NoError(t, store.Set(ctx, eskizTokenKey, "cached-token", time.Hour))

		client := newTestEskiz(store)
		client.loginURL = "http://127.0.0.1:1" // логин не должен понадобиться

		token, err := client.GetToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "cached-token", token)
	})

	t.Run("login extracts data.token and caches it", func(t *testing.T) {
		var gotEmail, gotPassword string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			gotEmail = r.PostFormValue("email")
			gotPassword = r.PostFormValue("password")
			_, _ = w.Write([]byte(`{"message":"token_generated","data":{"token":"fresh-token"}}`))
		}))
		defer srv.Close()

		store := cache.NewMemoryStore()
		client := newTestEskiz(store)
		client.loginURL = srv.URL

		token, err := client.GetToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", token)
		assert.Equal(t, "test@example.com", gotEmail)
		assert.Equal(t, "secret", gotPassword)

		cached, err := store.Get(ctx, eskizTokenKey)
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", cached)
	})

	t.Run("non-200 login", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
		}))
		defer srv.Close()

		client := newTestEskiz(cache.NewMemoryStore())
		client.loginURL = srv.URL

		_, err := client.GetToken(ctx)
		assert.ErrorIs(t, err, ErrEskizAuth)
	})

	t.Run("200 without data.token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		}))
		defer srv.Close()

		client := newTestEskiz(cache.NewMemoryStore())
		client.loginURL = srv.URL

		_, err := client.GetToken(ctx)
		assert.ErrorIs(t, err, ErrEskizAuth)
	})
}

func TestEskizSendSMS(t *testing.T) {
	ctx := context.Background()

	// токен заранее в кэше, чтобы отправка не ходила на логин
	withToken := func() cache.Store {
		store := cache.NewMemoryStore()
		_ = store.Set(ctx, eskizTokenKey, "test-token", time.Hour)
		return store
	}

	t.Run("ok sends bearer token and payload", func(t *testing.T) {
		var gotAuth string
		var gotPayload map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &gotPayload)
			_, _ = w.Write([]byte(`{"status":"waiting"}`))
		}))
		defer srv.Close()

		client := newTestEskiz(withToken())
		client.sendURL = srv.URL

		err := client.SendSMS(ctx, "901234567", "Код верификации: 1234")
		require.NoError(t, err)
		assert.Equal(t, "Bearer test-token", gotAuth)
		assert.Equal(t, "901234567", gotPayload["mobile_phone"])
		assert.Equal(t, "Код верификации: 1234", gotPayload["message"])
		assert.Equal(t, "4546", gotPayload["from"])
	})

	t.Run("non-200 carries provider detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Invalid recipient number"}`))
		}))
		defer srv.Close()

		client := newTestEskiz(withToken())
		client.sendURL = srv.URL

		err := client.SendSMS(ctx, "901234567", "text")
		assert.ErrorIs(t, err, ErrSMSSendFailed)
		assert.Contains(t, err.Error(), "Invalid recipient number")
	})

	t.Run("non-200 without detail falls back to generic message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`gateway exploded`))
		}))
		defer srv.Close()

		client := newTestEskiz(withToken())
		client.sendURL = srv.URL

		err := client.SendSMS(ctx, "901234567", "text")
		assert.ErrorIs(t, err, ErrSMSSendFailed)
		assert.Contains(t, err.Error(), "Failed to send SMS")
	})

	t.Run("dry-run skips network entirely", func(t *testing.T) {
		client := NewEskizClient(&config.EskizConfig{DryRun: true}, cache.NewMemoryStore())
		client.sendURL = "http://127.0.0.1:1"

		err := client.SendSMS(ctx, "901234567", "Код верификации: 1234")
		assert.NoError(t, err)
	})
}
