package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signal-community/apply-service/internal/models"
	"github.com/signal-community/apply-service/internal/notify"
	"github.com/signal-community/apply-service/internal/ratelimit"
	"github.com/signal-community/apply-service/internal/store"
	"github.com/signal-community/apply-service/internal/validate"
)

// Notifier delivers an accepted application by email.
type Notifier interface {
	Configured() bool
	Send(ctx context.Context, n notify.Notification) error
}

// Archiver durably records applications that missed email delivery.
type Archiver interface {
	InsertSubmission(ctx context.Context, s store.Submission) error
}

// ApplyDeps wires the gatekeeper pipeline. Archive may be nil, in which case
// missed deliveries are only logged.
type ApplyDeps struct {
	Limiter  *ratelimit.Limiter
	Notifier Notifier
	Archive  Archiver
	Log      *zap.Logger
}

// RegisterApplyRoutes registers the application submission endpoint.
//
// POST /api/apply
// - 429 when the fingerprint is over its window limit or under minimum spacing
// - 400 on malformed JSON or field validation failure (all failures listed)
// - 409 when the same fingerprint already submitted this email (no slot used)
// - 200 on acceptance, including when delivery fails and the application is
//   archived for manual review: infra problems never surface to applicants
func RegisterApplyRoutes(r gin.IRoutes, deps ApplyDeps) {
	r.POST("/api/apply", func(c *gin.Context) {
		now := time.Now()
		fingerprint := ratelimit.Fingerprint(c.Request)
		clientIP := ratelimit.ClientIP(c.Request)
		requestID := uuid.New().String()

		log := deps.Log.With(
			zap.String("request_id", requestID),
			zap.String("client_ip", clientIP),
		)

		// Advisory rate check before any payload work, so over-limit
		// clients are turned away even with invalid payloads.
		if wait, limited := deps.Limiter.Check(fingerprint, now); limited {
			rejectRateLimited(c, log, wait)
			return
		}

		var req models.ApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Info("submission rejected", zap.String("reason", "malformed_input"))
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid JSON payload"})
			return
		}

		if errs := validate.Submission(req.Name, req.Email, req.LinkedIn, req.GitHub, req.Accomplishments); len(errs) > 0 {
			log.Info("submission rejected",
				zap.String("reason", "validation_failed"),
				zap.Strings("details", errs),
			)
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Validation failed",
				Details: errs,
			})
			return
		}

		email := strings.TrimSpace(req.Email)

		// Authoritative check-and-increment. Duplicates do not consume a
		// slot; a race with the advisory check above resolves to 429 here.
		switch res, wait := deps.Limiter.Commit(fingerprint, email, now); res {
		case ratelimit.CommitDuplicate:
			log.Info("submission rejected",
				zap.String("reason", "duplicate_submission"),
				zap.String("email", email),
			)
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "Duplicate submission detected",
				Message: "An application from this email address has already been submitted.",
			})
			return
		case ratelimit.CommitLimited:
			rejectRateLimited(c, log, wait)
			return
		}

		name := strings.TrimSpace(req.Name)
		notification := notify.Notification{
			FromName:  name,
			FromEmail: email,
			Subject:   "Signal Application from " + name,
			Message:   renderSummary(req, clientIP, now),
		}

		if !deps.Notifier.Configured() {
			log.Warn("notifier not configured, keeping submission for review", zap.String("email", email))
			fallback(c, deps, log, req, clientIP, now, store.ReasonNotConfigured)
			return
		}

		if err := deps.Notifier.Send(c.Request.Context(), notification); err != nil {
			log.Error("email delivery failed", zap.String("email", email), zap.Error(err))
			fallback(c, deps, log, req, clientIP, now, store.ReasonSendFailed)
			return
		}

		log.Info("application submitted",
			zap.String("email", email),
			zap.Time("submitted_at", now.UTC()),
		)
		c.JSON(http.StatusOK, models.ApplyResponse{
			Success: true,
			Message: "Application submitted successfully",
		})
	})
}

// rejectRateLimited writes the 429 response with a Retry-After hint in
// whole seconds, rounded up.
func rejectRateLimited(c *gin.Context, log *zap.Logger, wait time.Duration) {
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	log.Info("submission rejected",
		zap.String("reason", "rate_limited"),
		zap.Int("retry_after_seconds", seconds),
	)

	c.Header("Retry-After", strconv.Itoa(seconds))
	c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
		Error:   "Rate limit exceeded",
		Message: "Please wait " + strconv.Itoa(seconds) + " seconds before submitting again.",
	})
}

// fallback archives the application (when an archive is wired) and returns
// the soft-success response. The applicant is never penalized for delivery
// infrastructure being down.
func fallback(c *gin.Context, deps ApplyDeps, log *zap.Logger, req models.ApplicationRequest, clientIP string, now time.Time, reason string) {
	preview := strings.TrimSpace(req.Accomplishments)
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}

	if deps.Archive != nil {
		sub := store.Submission{
			ID:              uuid.New().String(),
			Name:            strings.TrimSpace(req.Name),
			Email:           strings.TrimSpace(req.Email),
			LinkedInURL:     req.LinkedIn,
			GitHubURL:       req.GitHub,
			Accomplishments: strings.TrimSpace(req.Accomplishments),
			ClientIP:        clientIP,
			Reason:          reason,
			SubmittedAt:     now.UTC(),
		}
		if err := deps.Archive.InsertSubmission(c.Request.Context(), sub); err != nil {
			log.Error("archive write failed", zap.String("email", sub.Email), zap.Error(err))
		} else {
			log.Info("application archived for manual review",
				zap.String("submission_id", sub.ID),
				zap.String("email", sub.Email),
				zap.String("archive_reason", reason),
			)
		}
	} else {
		log.Info("application logged for manual review",
			zap.String("email", strings.TrimSpace(req.Email)),
			zap.String("accomplishments_preview", preview),
			zap.String("archive_reason", reason),
		)
	}

	c.JSON(http.StatusOK, models.ApplyResponse{
		Success:  true,
		Message:  "Application received and logged for review",
		Fallback: true,
	})
}

// renderSummary builds the human-readable notification body, including the
// derived security metadata reviewers expect.
func renderSummary(req models.ApplicationRequest, clientIP string, now time.Time) string {
	linkedin := req.LinkedIn
	if linkedin == "" {
		linkedin = "Not provided"
	}

	var b strings.Builder
	b.WriteString("New Signal Application:\n\n")
	b.WriteString("Name: " + strings.TrimSpace(req.Name) + "\n")
	b.WriteString("Email: " + strings.TrimSpace(req.Email) + "\n")
	b.WriteString("LinkedIn: " + linkedin + "\n")
	b.WriteString("GitHub: " + req.GitHub + "\n\n")
	b.WriteString("Accomplishments:\n")
	b.WriteString(strings.TrimSpace(req.Accomplishments) + "\n\n")
	b.WriteString("---\n")
	b.WriteString("Security Info:\n")
	b.WriteString("- Submitted from IP: " + clientIP + "\n")
	b.WriteString("- Timestamp: " + now.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("- Validated: yes\n")
	b.WriteString("- Spam Check: passed\n\n")
	b.WriteString("Submitted via Signal application form")
	return b.String()
}
