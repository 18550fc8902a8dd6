package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruiter-go/internal/config"
	"recruiter-go/internal/storage/models"
)

func TestNewEmailBackendSelection(t *testing.T) {
	smtp, err := NewEmailBackend(&config.EmailConfig{Backend: "smtp"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPBackend{}, smtp)

	api, err := NewEmailBackend(&config.EmailConfig{Backend: "api"})
	require.NoError(t, err)
	assert.IsType(t, &APIBackend{}, api)

	// Empty selects SMTP, unknown fails.
	def, err := NewEmailBackend(&config.EmailConfig{})
	require.NoError(t, err)
	assert.IsType(t, &SMTPBackend{}, def)

	_, err = NewEmailBackend(&config.EmailConfig{Backend: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestAPIBackendSend(t *testing.T) {
	var received map[string]string
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	backend, err := NewEmailBackend(&config.EmailConfig{
		Backend: "api",
		From:    "noreply@example.com",
		APIURL:  server.URL,
		APIKey:  "secret-key",
	})
	require.NoError(t, err)

	err = backend.Send(context.Background(), "jean@dupont.fr", "Hello", "Body text")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", auth)
	assert.Equal(t, "jean@dupont.fr", received["to"])
	assert.Equal(t, "Hello", received["subject"])
	assert.Equal(t, "noreply@example.com", received["from"])
}

func TestAPIBackendSendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rejected", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	backend, err := NewEmailBackend(&config.EmailConfig{Backend: "api", APIURL: server.URL})
	require.NoError(t, err)
	assert.Error(t, backend.Send(context.Background(), "x@y.z", "s", "b"))
}

type recordingBackend struct {
	to, subject, body string
	sent              bool
}

func (r *recordingBackend) Send(_ context.Context, to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	r.sent = true
	return nil
}

func TestSendInterviewInvite(t *testing.T) {
	backend := &recordingBackend{}
	notifier := NewNotifier(backend)

	candidate := &models.Candidate{CandidateID: "cand-1", Name: "Jean Dupont", Email: "jean@dupont.fr"}
	job := &models.Job{JobID: "job-1", Title: "Backend Engineer"}
	interview := &models.Interview{
		InterviewID: "int-1",
		ScheduledAt: time.Date(2026, 9, 14, 10, 30, 0, 0, time.UTC),
		Location:    "Paris office",
		Round:       "Technical",
	}

	require.NoError(t, notifier.SendInterviewInvite(context.Background(), candidate, job, interview))
	assert.Equal(t, "jean@dupont.fr", backend.to)
	assert.Contains(t, backend.subject, "Backend Engineer")
	assert.Contains(t, backend.body, "Jean Dupont")
	assert.Contains(t, backend.body, "Paris office")
	assert.Contains(t, backend.body, "Technical")
}

func TestSendInterviewInviteSkipsWithoutEmail(t *testing.T) {
	backend := &recordingBackend{}
	notifier := NewNotifier(backend)

	candidate := &models.Candidate{CandidateID: "cand-1", Name: "No Email"}
	err := notifier.SendInterviewInvite(context.Background(), candidate, &models.Job{}, &models.Interview{})
	require.NoError(t, err)
	assert.False(t, backend.sent)
}
