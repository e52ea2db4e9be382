package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// BrevoMailer sends mail through the Brevo transactional email API.
type BrevoMailer struct {
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
}

func NewBrevoMailer(apiKey, fromEmail, fromName string) *BrevoMailer {
	return &BrevoMailer{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   fromName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type sendEmailReq struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HtmlContent string              `json:"htmlContent"`
}

func (m *BrevoMailer) SendActivation(ctx context.Context, toEmail, name, link string) error {
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Welcome to TinyDesk! Confirm your email to activate your account:</p><p><a href="%s">Activate my account</a></p><p>The link expires in 24 hours.</p>`,
		htmlName(name), link,
	)
	return m.send(ctx, toEmail, "Activate your TinyDesk account", html)
}

func (m *BrevoMailer) SendPasswordReset(ctx context.Context, toEmail, name, link string) error {
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>We received a request to reset your TinyDesk password:</p><p><a href="%s">Reset my password</a></p><p>If you didn't ask for this, you can ignore this email.</p>`,
		htmlName(name), link,
	)
	return m.send(ctx, toEmail, "Reset your TinyDesk password", html)
}

func htmlName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func (m *BrevoMailer) send(ctx context.Context, toEmail, subject, html string) error {
	reqBody := sendEmailReq{
		Sender:      map[string]string{"email": m.fromEmail, "name": m.fromName},
		To:          []map[string]string{{"email": toEmail}},
		Subject:     subject,
		HtmlContent: html,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal email request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPIURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create Brevo request: %w", err)
	}
	httpReq.Header.Set("api-key", m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("brevo send email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorBody map[string]interface{}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errorBody); decodeErr != nil {
			return fmt.Errorf("brevo API error: status %d, failed to decode error body: %v", resp.StatusCode, decodeErr)
		}
		return fmt.Errorf("brevo API error: status %d, body: %v", resp.StatusCode, errorBody)
	}

	return nil
}
