package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nsoren/payhook/internal/logging"
)

const brevoAPIBaseURL = "https://api.brevo.com"

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      emailAddress   `json:"sender"`
	To          []emailAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// Brevo sends transactional email through the Brevo SMTP API. Every customer
// email also goes to the admin copy address for traceability, unless the
// customer is the admin.
type Brevo struct {
	apiKey      string
	senderName  string
	senderEmail string
	adminEmail  string
	baseURL     string
	httpClient  *http.Client
}

func NewBrevo(apiKey, senderName, senderEmail, adminEmail string) *Brevo {
	return &Brevo{
		apiKey:      apiKey,
		senderName:  senderName,
		senderEmail: senderEmail,
		adminEmail:  adminEmail,
		baseURL:     brevoAPIBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *Brevo) Enabled() bool {
	return b.apiKey != "" && b.senderEmail != ""
}

func (b *Brevo) Send(ctx context.Context, to, subject, text string) error {
	if !b.Enabled() {
		logging.FromContext(ctx).Debug("email sink disabled, message dropped", "subject", subject)
		return nil
	}
	if to == "" {
		return fmt.Errorf("brevo: no recipient")
	}

	recipients := []emailAddress{{Email: to}}
	if b.adminEmail != "" && to != b.adminEmail {
		recipients = append(recipients, emailAddress{Email: b.adminEmail})
	}

	payload := brevoRequest{
		Sender:      emailAddress{Email: b.senderEmail, Name: b.senderName},
		To:          recipients,
		Subject:     subject,
		HTMLContent: renderHTML(text, to),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("brevo: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("brevo: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("brevo: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo: unexpected status %d: %s", resp.StatusCode, detail)
	}

	logging.FromContext(ctx).Info("email sent", "to", to, "subject", subject)
	return nil
}

func renderHTML(text, to string) string {
	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(strings.TrimSpace(text), "\n", "<br>"))
	sb.WriteString(`<hr style="margin-top:20px;border:0;border-top:1px solid #ccc;">`)
	sb.WriteString(`<p style="font-size:13px;color:#555;">Admin copy for record. Sent to: `)
	sb.WriteString(to)
	sb.WriteString(`</p>`)
	return sb.String()
}
