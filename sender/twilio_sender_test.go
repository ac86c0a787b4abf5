package sender

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTwilioSender_RequiresCredentials(t *testing.T) {
	_, err := NewTwilioSender(TwilioConfig{AuthToken: "t", FromNumber: "+1"})
	assert.Error(t, err)
	_, err = NewTwilioSender(TwilioConfig{AccountSID: "AC1", FromNumber: "+1"})
	assert.Error(t, err)
	_, err = NewTwilioSender(TwilioConfig{AccountSID: "AC1", AuthToken: "t"})
	assert.Error(t, err)
}

func TestTwilioSender_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "+639171234567", r.PostForm.Get("To"))
		assert.Equal(t, "+15005550006", r.PostForm.Get("From"))
		assert.Equal(t, "hello", r.PostForm.Get("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
	}))
	defer srv.Close()

	s, err := NewTwilioSender(TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15005550006",
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)

	resp, err := s.Send(context.Background(), "09171234567", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "SM42", resp)
}

func TestTwilioSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"invalid To"}`))
	}))
	defer srv.Close()

	s, err := NewTwilioSender(TwilioConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+1", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Send(context.Background(), "09171234567", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

func TestTwilioSender_RejectsBadNumberWithoutCalling(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	s, err := NewTwilioSender(TwilioConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+1", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Send(context.Background(), "12345", "hello", nil)
	assert.Error(t, err)
	assert.False(t, called)
	assert.False(t, s.Accepts("juan@example.com"))
	assert.True(t, s.Accepts("09171234567"))
}
