package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tudu/pkg/apperrors"
	"tudu/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGigaChat struct {
	mu           sync.Mutex
	tokens       int
	rejectFirst  bool
	reply        string
	uploads      int
	deleted      []string
	chatPayloads []chatRequest
	uploadedMIME string
}

func (f *fakeGigaChat) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokens++
		n := f.tokens
		f.mu.Unlock()

		assert.Equal(t, "Basic test-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("RqUID"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "GIGACHAT_API_PERS", r.PostForm.Get("scope"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-" + string(rune('0'+n)),
			"expires_at":   time.Now().Add(30 * time.Minute).UnixMilli(),
		})
	})

	mux.HandleFunc("/api/v1/files", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.rejectFirst && r.Header.Get("Authorization") == "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.uploads++

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "general", r.FormValue("purpose"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		f.uploadedMIME = header.Header.Get("Content-Type")
		data, _ := io.ReadAll(file)
		assert.Equal(t, "image-bytes", string(data))

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "file-42"})
	})

	mux.HandleFunc("/api/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.chatPayloads = append(f.chatPayloads, req)
		reply := f.reply
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": reply}}},
		})
	})

	mux.HandleFunc("/api/v1/files/file-42/delete", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, "file-42")
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func newTestLLMService(t *testing.T, fake *fakeGigaChat) *LLMService {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	return &LLMService{
		cfg: &config.GigaChatConfig{
			APIKey:  "test-key",
			Scope:   "GIGACHAT_API_PERS",
			Model:   "GigaChat-Pro",
			Timeout: 5 * time.Second,
		},
		logger:     zap.NewNop(),
		httpClient: srv.Client(),
		baseURL:    srv.URL + "/api/v1",
		oauthURL:   srv.URL + "/oauth",
	}
}

func TestDescribeImage(t *testing.T) {
	fake := &fakeGigaChat{reply: ` {"expenses": []} `}
	s := newTestLLMService(t, fake)

	text, err := s.DescribeImage(t.Context(), []byte("image-bytes"), "receipt.png", "image/png", "read it")
	require.NoError(t, err)
	assert.Equal(t, `{"expenses": []}`, text)

	assert.Equal(t, 1, fake.tokens)
	assert.Equal(t, 1, fake.uploads)
	assert.Equal(t, "image/png", fake.uploadedMIME)
	assert.Equal(t, []string{"file-42"}, fake.deleted)

	require.Len(t, fake.chatPayloads, 1)
	payload := fake.chatPayloads[0]
	assert.Equal(t, "GigaChat-Pro", payload.Model)
	require.Len(t, payload.Messages, 1)
	assert.Equal(t, "read it", payload.Messages[0].Content)
	assert.Equal(t, []string{"file-42"}, payload.Messages[0].Attachments)

	_, err = s.DescribeImage(t.Context(), []byte("image-bytes"), "receipt.png", "image/png", "again")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.tokens, "cached token is reused")
}

func TestDescribeImageRefreshesRejectedToken(t *testing.T) {
	fake := &fakeGigaChat{rejectFirst: true, reply: "{}"}
	s := newTestLLMService(t, fake)

	_, err := s.DescribeImage(t.Context(), []byte("image-bytes"), "receipt.jpg", "image/jpeg", "read it")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.tokens)
	assert.Equal(t, 1, fake.uploads)
}

func TestDescribeImageRefusal(t *testing.T) {
	fake := &fakeGigaChat{reply: "Sorry, I cannot process this image."}
	s := newTestLLMService(t, fake)

	_, err := s.DescribeImage(t.Context(), []byte("image-bytes"), "receipt.jpg", "image/jpeg", "read it")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "declined"))
	assert.Equal(t, []string{"file-42"}, fake.deleted)
}

func TestNewLLMServiceRequiresKey(t *testing.T) {
	_, err := NewLLMService(&config.GigaChatConfig{APIKey: " "}, zap.NewNop())
	assert.True(t, apperrors.Is(err, apperrors.ConfigurationError))
}
