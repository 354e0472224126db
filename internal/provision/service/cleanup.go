package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lexorahq/provision/internal/provision/metrics"
	"github.com/lexorahq/provision/pkg/idx"
)

// CleanupService asks the recovery workflow to start deleting an orphaned
// identity. Initiation is fire-and-forget: it never blocks the caller and
// never returns an error, and the raw email never reaches the logs.
type CleanupService struct {
	client  *resty.Client
	logger  *slog.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

// NewCleanupService points the bridge at the recovery workflow endpoint.
// An empty endpoint disables dispatch; initiations are logged and dropped.
func NewCleanupService(endpoint string, logger *slog.Logger) *CleanupService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CleanupService{
		logger:  logger,
		timeout: 10 * time.Second,
	}
	if endpoint != "" {
		s.client = resty.New().
			SetBaseURL(endpoint).
			SetTimeout(s.timeout).
			SetHeader("Content-Type", "application/json")
	}
	return s
}

type cleanupRequest struct {
	Step          string `json:"step"`
	Email         string `json:"email"`
	CorrelationID string `json:"correlationId"`
}

// Initiate validates the email shape and dispatches the request-code step
// in the background. The caller's flow continues regardless of outcome.
func (s *CleanupService) Initiate(email string, correlationID idx.ID) {
	log := s.logger.With(
		slog.String("corr_id", correlationID.String()),
		slog.String("email_hash", EmailHash(email)),
	)

	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		metrics.CleanupInitiations.WithLabelValues("rejected").Inc()
		log.Warn("cleanup initiation rejected, malformed email")
		return
	}
	if s.client == nil {
		metrics.CleanupInitiations.WithLabelValues("disabled").Inc()
		log.Info("cleanup initiation skipped, no endpoint configured")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch(log, email, correlationID)
	}()
}

func (s *CleanupService) dispatch(log *slog.Logger, email string, correlationID idx.ID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Correlation-ID", correlationID.String()).
		SetBody(cleanupRequest{
			Step:          "request-code",
			Email:         strings.ToLower(email),
			CorrelationID: correlationID.String(),
		}).
		Post("")
	if err != nil {
		metrics.CleanupInitiations.WithLabelValues("error").Inc()
		log.Warn("cleanup initiation unreachable", slog.Any("error", err))
		return
	}
	if resp.IsError() {
		metrics.CleanupInitiations.WithLabelValues("error").Inc()
		log.Warn("cleanup initiation rejected by workflow",
			slog.Int("status", resp.StatusCode()),
		)
		return
	}

	metrics.CleanupInitiations.WithLabelValues("dispatched").Inc()
	log.Info("cleanup initiated")
}

// Flush waits for outstanding dispatches. Called on shutdown.
func (s *CleanupService) Flush() {
	s.wg.Wait()
}

// EmailHash is the log-safe fingerprint of an email address. FNV-1a is
// deliberate: this is for correlating log lines, not for secrecy.
func EmailHash(email string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("%016x", h.Sum64())
}
