package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/signal-community/apply-service/internal/models"
	"github.com/signal-community/apply-service/internal/notify"
	"github.com/signal-community/apply-service/internal/ratelimit"
	"github.com/signal-community/apply-service/internal/store"
)

const goodAccomplishments = "I built a peer tutoring platform used by three hundred students across campus. " +
	"Later I led a small team that shipped an open source scheduling tool which professors still rely on today."

type stubNotifier struct {
	configured bool
	err        error
	sent       []notify.Notification
}

func (s *stubNotifier) Configured() bool { return s.configured }

func (s *stubNotifier) Send(ctx context.Context, n notify.Notification) error {
	s.sent = append(s.sent, n)
	return s.err
}

type stubArchive struct {
	err      error
	archived []store.Submission
}

func (s *stubArchive) InsertSubmission(ctx context.Context, sub store.Submission) error {
	if s.err != nil {
		return s.err
	}
	s.archived = append(s.archived, sub)
	return nil
}

// newRouter builds a minimal engine with just the apply route. The tiny
// minimum interval lets sequential test requests through without sleeping.
func newRouter(deps ApplyDeps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterApplyRoutes(r, deps)
	return r
}

func defaultDeps(n *stubNotifier, a *stubArchive) ApplyDeps {
	deps := ApplyDeps{
		Limiter:  ratelimit.New(15*time.Minute, 3, time.Nanosecond),
		Notifier: n,
		Log:      zap.NewNop(),
	}
	if a != nil {
		deps.Archive = a
	}
	return deps
}

func validPayload(email string) map[string]string {
	return map[string]string{
		"name":            "Alex Chen",
		"email":           email,
		"linkedin":        "",
		"github":          "https://github.com/alexchen",
		"accomplishments": goodAccomplishments,
	}
}

func postApply(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/apply", reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error JSON: %v", err)
	}
	return resp
}

func decodeApply(t *testing.T, rec *httptest.ResponseRecorder) models.ApplyResponse {
	t.Helper()
	var resp models.ApplyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid apply JSON: %v", err)
	}
	return resp
}

func TestApply_AcceptsValidSubmission(t *testing.T) {
	notifier := &stubNotifier{configured: true}
	r := newRouter(defaultDeps(notifier, nil))

	rec := postApply(t, r, validPayload("alex@yale.edu"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeApply(t, rec)
	if !resp.Success || resp.Fallback {
		t.Fatalf("expected clean success, got %+v", resp)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	n := notifier.sent[0]
	if n.FromEmail != "alex@yale.edu" {
		t.Fatalf("unexpected from_email %q", n.FromEmail)
	}
	if n.Subject != "Signal Application from Alex Chen" {
		t.Fatalf("unexpected subject %q", n.Subject)
	}
	for _, want := range []string{"New Signal Application:", "LinkedIn: Not provided", "Validated: yes", "Spam Check: passed"} {
		if !strings.Contains(n.Message, want) {
			t.Fatalf("notification body missing %q:\n%s", want, n.Message)
		}
	}
}

func TestApply_MalformedJSONReturns400(t *testing.T) {
	r := newRouter(defaultDeps(&stubNotifier{configured: true}, nil))

	rec := postApply(t, r, "{not json")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "Invalid JSON payload" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
}

func TestApply_ValidationFailureListsAllProblems(t *testing.T) {
	r := newRouter(defaultDeps(&stubNotifier{configured: true}, nil))

	payload := validPayload("alex@yale.edu")
	payload["github"] = "https://gitlab.com/alexchen"
	rec := postApply(t, r, payload)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeError(t, rec)
	if resp.Error != "Validation failed" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
	if len(resp.Details) != 1 || resp.Details[0] != "Invalid GitHub profile URL" {
		t.Fatalf("expected single GitHub message, got %v", resp.Details)
	}
}

func TestApply_DuplicateEmailReturns409(t *testing.T) {
	notifier := &stubNotifier{configured: true}
	r := newRouter(defaultDeps(notifier, nil))

	if rec := postApply(t, r, validPayload("alex@yale.edu")); rec.Code != http.StatusOK {
		t.Fatalf("first submission expected 200 got %d", rec.Code)
	}

	rec := postApply(t, r, validPayload("alex@yale.edu"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeError(t, rec); resp.Error != "Duplicate submission detected" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("duplicate must not trigger delivery, got %d sends", len(notifier.sent))
	}
}

func TestApply_WindowLimitReturns429WithRetryAfter(t *testing.T) {
	deps := defaultDeps(&stubNotifier{configured: true}, nil)
	deps.Limiter = ratelimit.New(15*time.Minute, 1, time.Nanosecond)
	r := newRouter(deps)

	if rec := postApply(t, r, validPayload("a@yale.edu")); rec.Code != http.StatusOK {
		t.Fatalf("first submission expected 200 got %d", rec.Code)
	}

	// Over the window limit now; rejected before the payload is even read.
	rec := postApply(t, r, "{not json")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	resp := decodeError(t, rec)
	if resp.Error != "Rate limit exceeded" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
	if !strings.Contains(resp.Message, "seconds before submitting again") {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestApply_MinimumSpacingReturns429(t *testing.T) {
	deps := defaultDeps(&stubNotifier{configured: true}, nil)
	deps.Limiter = ratelimit.New(15*time.Minute, 3, 5*time.Second)
	r := newRouter(deps)

	if rec := postApply(t, r, validPayload("a@yale.edu")); rec.Code != http.StatusOK {
		t.Fatalf("first submission expected 200 got %d", rec.Code)
	}

	rec := postApply(t, r, validPayload("b@yale.edu"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 under minimum spacing, got %d", rec.Code)
	}
}

func TestApply_DeliveryFailureStillSucceedsAndArchives(t *testing.T) {
	notifier := &stubNotifier{configured: true, err: errors.New("emailjs down")}
	archive := &stubArchive{}
	r := newRouter(defaultDeps(notifier, archive))

	rec := postApply(t, r, validPayload("alex@yale.edu"))

	if rec.Code != http.StatusOK {
		t.Fatalf("delivery failure must not surface, got %d", rec.Code)
	}
	resp := decodeApply(t, rec)
	if !resp.Success || !resp.Fallback {
		t.Fatalf("expected fallback success, got %+v", resp)
	}

	if len(archive.archived) != 1 {
		t.Fatalf("expected 1 archived submission, got %d", len(archive.archived))
	}
	sub := archive.archived[0]
	if sub.Reason != store.ReasonSendFailed {
		t.Fatalf("unexpected archive reason %q", sub.Reason)
	}
	if sub.Email != "alex@yale.edu" || sub.ID == "" {
		t.Fatalf("unexpected archived submission %+v", sub)
	}
}

func TestApply_UnconfiguredNotifierFallsBack(t *testing.T) {
	notifier := &stubNotifier{configured: false}
	archive := &stubArchive{}
	r := newRouter(defaultDeps(notifier, archive))

	rec := postApply(t, r, validPayload("alex@yale.edu"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if resp := decodeApply(t, rec); !resp.Fallback {
		t.Fatalf("expected fallback response, got %+v", resp)
	}
	if len(notifier.sent) != 0 {
		t.Fatal("unconfigured notifier must not be called")
	}
	if len(archive.archived) != 1 || archive.archived[0].Reason != store.ReasonNotConfigured {
		t.Fatalf("expected not-configured archive record, got %+v", archive.archived)
	}
}

func TestApply_ArchiveFailureStaysInvisible(t *testing.T) {
	notifier := &stubNotifier{configured: true, err: errors.New("emailjs down")}
	archive := &stubArchive{err: errors.New("db down")}
	r := newRouter(defaultDeps(notifier, archive))

	rec := postApply(t, r, validPayload("alex@yale.edu"))

	if rec.Code != http.StatusOK {
		t.Fatalf("archive failure must not surface, got %d", rec.Code)
	}
	if resp := decodeApply(t, rec); !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
}

func TestApply_NoArchiveConfiguredStillFallsBack(t *testing.T) {
	notifier := &stubNotifier{configured: true, err: errors.New("emailjs down")}
	r := newRouter(defaultDeps(notifier, nil))

	rec := postApply(t, r, validPayload("alex@yale.edu"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if resp := decodeApply(t, rec); !resp.Success || !resp.Fallback {
		t.Fatalf("expected fallback success, got %+v", resp)
	}
}
