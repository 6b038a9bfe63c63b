package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botbrain/internal/domain"
)

func embedResponseJSON(dims, totalTokens int) string {
	vec := make([]string, dims)
	for i := range vec {
		vec[i] = "0.1"
	}
	return fmt.Sprintf(`{
		"data": [{"index": 0, "embedding": [%s]}],
		"usage": {"prompt_tokens": %d, "total_tokens": %d}
	}`, strings.Join(vec, ","), totalTokens, totalTokens)
}

func TestEmbedRequestShape(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		io.WriteString(w, embedResponseJSON(domain.EmbeddingDimensions, 12))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(srv.URL))
	emb, err := p.Embed(context.Background(), "some text")
	require.NoError(t, err)

	assert.Equal(t, "some text", captured["input"])
	assert.Equal(t, "text-embedding-3-large", captured["model"])
	// Dimensions are always requested explicitly.
	assert.Equal(t, float64(domain.EmbeddingDimensions), captured["dimensions"])

	assert.Len(t, emb.Vector, domain.EmbeddingDimensions)
	assert.Equal(t, 12, emb.Tokens)
}

func TestEmbedDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, embedResponseJSON(8, 3))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(srv.URL))
	_, err := p.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch), "got %v", err)
}

func TestEmbedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"message": "slow down"}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(srv.URL))
	_, err := p.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbeddingFailed), "got %v", err)
}

func TestEmbedEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data": [], "usage": {"prompt_tokens": 0, "total_tokens": 0}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(srv.URL))
	_, err := p.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbeddingFailed), "got %v", err)
}

func TestEmbedCustomModelAndDimensions(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		io.WriteString(w, embedResponseJSON(256, 5))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test",
		WithOpenAIBaseURL(srv.URL),
		WithOpenAIModel("text-embedding-3-small"),
		WithOpenAIDimensions(256),
	)
	emb, err := p.Embed(context.Background(), "text")
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", captured["model"])
	assert.Equal(t, float64(256), captured["dimensions"])
	assert.Len(t, emb.Vector, 256)
	assert.Equal(t, 256, p.Dimensions())
}
