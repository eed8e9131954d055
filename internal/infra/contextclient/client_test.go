package contextclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
)

func TestContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mcp/context", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"style":"friendly","mode":"error","language":"en"}`))
	}))
	defer srv.Close()

	for _, base := range []string{srv.URL, srv.URL + "/", srv.URL + "/mcp/context"} {
		got, err := New(base, srv.Client()).Context(context.Background())
		require.NoError(t, err)
		assert.Equal(t, advisory.NewContext("friendly", "error", "en"), got)
	}
}

func TestContextPartialBodyKeepsDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"mode":"humor"}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, nil).Context(context.Background())
	require.NoError(t, err)
	assert.Equal(t, advisory.Mode("humor"), got.Mode)
	assert.Equal(t, advisory.StyleNeutral, got.Style)
	assert.Equal(t, advisory.LanguageGerman, got.Language)
}

func TestContextErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"body":   func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`not json`)) },
		"array":  func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`["x"]`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := New(srv.URL, nil).Context(context.Background())
			assert.Error(t, err)
		})
	}

	_, err := New("http://127.0.0.1:1", nil).Context(context.Background())
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"style": "friendly", "mode": "", "language": "en"}, body)
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	got, err := New(srv.URL, nil).WithAPIKey("k").Set(context.Background(), "friendly", "", "en")
	require.NoError(t, err)
	assert.Equal(t, advisory.NewContext("friendly", "", "en"), got)
}

func TestSetRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing parameter: language", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Set(context.Background(), "a", "b", "c")
	assert.ErrorContains(t, err, "422")
}
