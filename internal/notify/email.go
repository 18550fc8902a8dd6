// Package notify sends outbound candidate email. Delivery is fire and
// forget from the caller's perspective: failures are logged, never surfaced
// to the HTTP client that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"recruiter-go/internal/config"
	"recruiter-go/internal/logger"
	"recruiter-go/internal/storage/models"
)

// EmailBackend delivers one message.
type EmailBackend interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewEmailBackend builds the configured backend.
func NewEmailBackend(cfg *config.EmailConfig) (EmailBackend, error) {
	switch cfg.Backend {
	case "", "smtp":
		return &SMTPBackend{cfg: cfg}, nil
	case "api":
		return &APIBackend{
			cfg:    cfg,
			client: &http.Client{Timeout: 10 * time.Second},
		}, nil
	default:
		return nil, fmt.Errorf("unknown email backend %q", cfg.Backend)
	}
}

// SMTPBackend delivers through a plain SMTP relay.
type SMTPBackend struct {
	cfg *config.EmailConfig
}

var _ EmailBackend = (*SMTPBackend)(nil)

func (b *SMTPBackend) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", b.cfg.SMTPHost, b.cfg.SMTPPort)

	var auth smtp.Auth
	if b.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", b.cfg.SMTPUsername, b.cfg.SMTPPassword, b.cfg.SMTPHost)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", b.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	return smtp.SendMail(addr, auth, b.cfg.From, []string{to}, []byte(msg.String()))
}

// APIBackend delivers through a transactional email HTTP API.
type APIBackend struct {
	cfg    *config.EmailConfig
	client *http.Client
}

var _ EmailBackend = (*APIBackend)(nil)

func (b *APIBackend) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"from":    b.cfg.From,
		"to":      to,
		"subject": subject,
		"text":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}
	return nil
}

// Notifier composes candidate-facing messages on top of a backend.
type Notifier struct {
	backend EmailBackend
}

// NewNotifier wraps backend.
func NewNotifier(backend EmailBackend) *Notifier {
	return &Notifier{backend: backend}
}

// SendInterviewInvite emails the candidate about a scheduled interview.
// Intended to run in a goroutine; the error return is for tests and logging.
func (n *Notifier) SendInterviewInvite(ctx context.Context, candidate *models.Candidate, job *models.Job, interview *models.Interview) error {
	if candidate.Email == "" {
		logger.Warn().Str("candidate_id", candidate.CandidateID).Msg("Candidate has no email, skipping interview invite")
		return nil
	}

	subject := fmt.Sprintf("Interview invitation: %s", job.Title)
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", candidate.Name)
	fmt.Fprintf(&body, "You are invited to an interview for the %s position.\n\n", job.Title)
	fmt.Fprintf(&body, "Date: %s\n", interview.ScheduledAt.Format("Monday, 02 Jan 2006 at 15:04"))
	if interview.Location != "" {
		fmt.Fprintf(&body, "Location: %s\n", interview.Location)
	}
	if interview.Round != "" {
		fmt.Fprintf(&body, "Round: %s\n", interview.Round)
	}
	body.WriteString("\nBest regards,\nThe recruitment team\n")

	if err := n.backend.Send(ctx, candidate.Email, subject, body.String()); err != nil {
		logger.Error().Err(err).
			Str("candidate_id", candidate.CandidateID).
			Str("interview_id", interview.InterviewID).
			Msg("Failed to send interview invite")
		return err
	}
	logger.Info().
		Str("candidate_id", candidate.CandidateID).
		Str("interview_id", interview.InterviewID).
		Msg("Interview invite sent")
	return nil
}
