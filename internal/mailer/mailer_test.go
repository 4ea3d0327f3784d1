package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got Message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(srv.URL, "key-123")
	err := c.Send(context.Background(), Message{To: "a@b.co", Subject: "hi", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer key-123", auth)
	assert.Equal(t, "a@b.co", got.To)
}

func TestSend_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	assert.Error(t, c.Send(context.Background(), Message{To: "a@b.co"}))
}

func TestSend_DisabledIsNoop(t *testing.T) {
	c := New("", "")
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Send(context.Background(), Message{To: "a@b.co"}))
}
