package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/leadmailer/internal/domain"
)

func TestPersonalize(t *testing.T) {
	vars := map[string]string{"nome": "Ana", "email": "ana@x.com"}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"simple", "Olá, {{nome}}!", "Olá, Ana!"},
		{"spaces inside braces", "Olá, {{ nome }}!", "Olá, Ana!"},
		{"case insensitive", "{{NOME}} <{{Email}}>", "Ana <ana@x.com>"},
		{"unknown kept", "Olá {{cidade}}", "Olá {{cidade}}"},
		{"no placeholders", "Plain text", "Plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Personalize(tt.template, vars))
		})
	}
}

func TestPersonalizeHTML_EscapesValues(t *testing.T) {
	vars := map[string]string{"nome": `<a href="https://evil.test">Clique aqui</a>`, "email": "o'neil&co@x.com"}

	got := PersonalizeHTML("<p>Olá, {{nome}} ({{email}})</p>", vars)

	assert.NotContains(t, got, "<a href")
	assert.Equal(t, "<p>Olá, &lt;a href=&#34;https://evil.test&#34;&gt;Clique aqui&lt;/a&gt; (o&#39;neil&amp;co@x.com)</p>", got)

	// тема письма — обычный текст, экранирование не нужно
	assert.Equal(t, `Olá <b>`, Personalize("Olá {{nome}}", map[string]string{"nome": "<b>"}))
}

func TestLayout_Apply(t *testing.T) {
	l := NewLayout(LayoutConfig{
		ServiceName:        "Acme",
		UnsubscribeBaseURL: "https://acme.test/unsubscribe",
	})

	html, err := l.Apply("<p>Olá</p>", "tok-123")
	require.NoError(t, err)

	assert.Contains(t, html, "<p>Olá</p>", "body must not be escaped")
	assert.Contains(t, html, "https://acme.test/unsubscribe?token=tok-123")
	assert.Contains(t, html, "Acme")
}

func TestLayout_Apply_NoToken(t *testing.T) {
	l := NewLayout(LayoutConfig{ServiceName: "Acme", UnsubscribeBaseURL: "https://acme.test/u"})

	html, err := l.Apply("<p>x</p>", "")
	require.NoError(t, err)
	assert.NotContains(t, html, "token=")
}

func TestPassthrough(t *testing.T) {
	in := domain.Content{Subject: "s", HTML: "h"}
	out, err := Passthrough{}.Apply(context.Background(), in, "k", "svc", "from@x.com")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBrevoTransport_Send_Accepted(t *testing.T) {
	var got brevoEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<m1@brevo>"}`))
	}))
	defer server.Close()

	tr := NewBrevoTransport(BrevoConfig{
		APIURL: server.URL,
		APIKey: "secret",
		Sender: Contact{Name: "Acme", Email: "no-reply@acme.test"},
	})

	ok, err := tr.Send(context.Background(), "a@x.com", "Oi", "<p>hi</p>")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a@x.com", got.To[0].Email)
	assert.Equal(t, "no-reply@acme.test", got.Sender.Email)
	assert.Equal(t, "Oi", got.Subject)
}

func TestBrevoTransport_Send_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer server.Close()

	tr := NewBrevoTransport(BrevoConfig{APIURL: server.URL})

	ok, err := tr.Send(context.Background(), "bad", "s", "h")
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportRejected))
	assert.True(t, strings.Contains(err.Error(), "invalid_parameter"))
}

func TestBrevoTransport_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tr := NewBrevoTransport(BrevoConfig{APIURL: server.URL, RatePerSec: 100})

	ok, err := tr.Send(context.Background(), "a@x.com", "s", "h")
	assert.False(t, ok)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTransportRejected))
}
