package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHTTPProviderSend(t *testing.T) {
	var got gatewayRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewHTTP(HTTPConfig{Endpoint: srv.URL, APIKey: "secret", SenderID: "FRONTDESK"}, srv.Client())
	err := p.Send(context.Background(), Message{To: "+919800000001", Body: "checked out", Reference: "42"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "FRONTDESK", got.From)
	assert.Equal(t, "+919800000001", got.To)
	assert.Equal(t, "42", got.Reference)
}

func TestHTTPProviderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTP(HTTPConfig{Endpoint: srv.URL}, srv.Client())
	err := p.Send(context.Background(), Message{To: "+919800000001", Body: "checked out"})
	assert.True(t, errors.Is(err, ErrGatewayRejected))
}

func TestHTTPProviderHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	p := NewHTTP(HTTPConfig{Endpoint: srv.URL}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Send(ctx, Message{To: "+919800000001", Body: "checked out"})
	assert.Error(t, err)
}

func TestValidateMessage(t *testing.T) {
	p := NewLog(zaptest.NewLogger(t))
	assert.ErrorIs(t, p.Send(context.Background(), Message{Body: "x"}), ErrMissingRecipient)
	assert.ErrorIs(t, p.Send(context.Background(), Message{To: "+91"}), ErrEmptyBody)
	assert.NoError(t, p.Send(context.Background(), Message{To: "+91", Body: "x"}))
}

func TestNewFromConfig(t *testing.T) {
	log := zaptest.NewLogger(t)

	p, err := NewFromConfig(config.Config{SMS: config.SMSConfig{Provider: "log"}}, log)
	require.NoError(t, err)
	assert.Equal(t, "log", p.Name())

	p, err = NewFromConfig(config.Config{SMS: config.SMSConfig{Provider: "noop"}}, log)
	require.NoError(t, err)
	assert.Equal(t, "noop", p.Name())

	_, err = NewFromConfig(config.Config{SMS: config.SMSConfig{Provider: "http"}}, log)
	assert.Error(t, err)

	_, err = NewFromConfig(config.Config{SMS: config.SMSConfig{Provider: "carrier-pigeon"}}, log)
	assert.Error(t, err)
}
