package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://localhost:11434/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", client.baseURL)
	assert.Equal(t, DefaultModel, client.model)
}

func TestExtractText(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:    captured.Model,
			Response: `{"store_name":"Acme","items":[]}`,
			Done:     true,
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)

	text, err := client.ExtractText(context.Background(), encodePNG(t, 100, 100))
	require.NoError(t, err)
	assert.Equal(t, `{"store_name":"Acme","items":[]}`, text)

	assert.Equal(t, "test-model", captured.Model)
	assert.False(t, captured.Stream)
	require.Len(t, captured.Images, 1)
	// The attached image is the re-encoded JPEG, base64 encoded.
	raw, err := base64.StdEncoding.DecodeString(captured.Images[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, raw[:2])
}

func TestExtractText_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.ExtractText(context.Background(), encodePNG(t, 50, 50))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestExtractText_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Done: true})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.ExtractText(context.Background(), encodePNG(t, 50, 50))
	require.Error(t, err)
}

func TestExtractText_EmptyImage(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://localhost:11434"})
	require.NoError(t, err)

	_, err = client.ExtractText(context.Background(), nil)
	require.Error(t, err)
}
