// Package notify delivers accepted applications through the EmailJS
// transactional send API. Delivery is best-effort by policy: callers treat
// any error here as "archive and move on", never as a client-facing failure.
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
)

const defaultBaseURL = "https://api.emailjs.com"

const defaultTimeout = 10 * time.Second

// Notification carries the rendered content for one send.
type Notification struct {
	FromName  string
	FromEmail string
	Subject   string
	Message   string
}

// Client talks to the EmailJS REST API.
type Client struct {
	BaseURL    string
	ServiceID  string
	TemplateID string
	PublicKey  string
	ToEmail    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied. Credentials may be
// empty; Configured reports whether sends can be attempted.
func NewClient(baseURL, serviceID, templateID, publicKey, toEmail string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		BaseURL:    url,
		ServiceID:  strings.TrimSpace(serviceID),
		TemplateID: strings.TrimSpace(templateID),
		PublicKey:  strings.TrimSpace(publicKey),
		ToEmail:    strings.TrimSpace(toEmail),
	}
}

// Configured reports whether all credentials required for a send are set.
func (c *Client) Configured() bool {
	return c != nil && c.ServiceID != "" && c.TemplateID != "" && c.PublicKey != ""
}

// sendRequest is the EmailJS wire format.
type sendRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams templateParams `json:"template_params"`
}

type templateParams struct {
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	ToEmail   string `json:"to_email"`
	ReplyTo   string `json:"reply_to"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// Send posts one notification. A single attempt, bounded by Timeout; the
// reply-to is set to the applicant so a human can answer directly.
func (c *Client) Send(ctx context.Context, n Notification) error {
	if !c.Configured() {
		return fmt.Errorf("emailjs credentials not configured")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(sendRequest{
		ServiceID:  c.ServiceID,
		TemplateID: c.TemplateID,
		UserID:     c.PublicKey,
		TemplateParams: templateParams{
			FromName:  n.FromName,
			FromEmail: n.FromEmail,
			ToEmail:   c.ToEmail,
			ReplyTo:   n.FromEmail,
			Subject:   n.Subject,
			Message:   n.Message,
		},
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/api/v1.0/email/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emailjs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
