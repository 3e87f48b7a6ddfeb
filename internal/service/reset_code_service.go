package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/pkg/clock"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
)

const (
	// DefaultResetCodeTTL is the lifetime of a reset code.
	DefaultResetCodeTTL = 15 * time.Minute
	resetCodeSpace      = 1000000
)

// ResetCodeStore holds at most one reset code per email.
type ResetCodeStore interface {
	Get(ctx context.Context, email string) (models.ResetCode, bool, error)
	Put(ctx context.Context, email string, code models.ResetCode, ttl time.Duration) error
	Delete(ctx context.Context, email string) error
}

// ResetCodeService issues and checks six digit password reset codes. The store
// is supplied per call because it may be bound to the caller's session.
type ResetCodeService struct {
	clock    clock.Clock
	ttl      time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
	generate func() (string, error)
	mu       sync.Mutex
}

// NewResetCodeService constructs a ResetCodeService.
func NewResetCodeService(clk clock.Clock, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *ResetCodeService {
	if clk == nil {
		clk = clock.System()
	}
	if ttl <= 0 {
		ttl = DefaultResetCodeTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResetCodeService{clock: clk, ttl: ttl, metrics: metrics, logger: logger, generate: generateResetCode}
}

// Issue stores a fresh code for email, replacing any previous one.
func (s *ResetCodeService) Issue(ctx context.Context, store ResetCodeStore, email string) (models.ResetCode, error) {
	code, err := s.generate()
	if err != nil {
		return models.ResetCode{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate reset code")
	}
	issued := models.ResetCode{Code: code, ExpiresAt: s.clock.Now().Add(s.ttl)}
	if err := store.Put(ctx, normalizeEmail(email), issued, s.ttl); err != nil {
		return models.ResetCode{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reset code")
	}
	return issued, nil
}

// Validate checks code for email without consuming it. Missing, mismatched and
// expired codes all return ErrInvalidResetCode.
func (s *ResetCodeService) Validate(ctx context.Context, store ResetCodeStore, email, code string) error {
	_, err := s.check(ctx, store, normalizeEmail(email), code)
	return err
}

// Redeem validates code for email and removes it so it cannot be used again.
func (s *ResetCodeService) Redeem(ctx context.Context, store ResetCodeStore, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(email)
	if _, err := s.check(ctx, store, key, code); err != nil {
		return err
	}
	if err := store.Delete(ctx, key); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear reset code")
	}
	return nil
}

func (s *ResetCodeService) check(ctx context.Context, store ResetCodeStore, key, code string) (models.ResetCode, error) {
	stored, found, err := store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("reset code lookup failed", zap.Error(err))
		return models.ResetCode{}, s.reject()
	}
	if !found {
		return models.ResetCode{}, s.reject()
	}
	if !stored.ValidAt(s.clock.Now()) {
		// expired codes are dropped lazily
		if err := store.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to drop expired reset code", zap.Error(err))
		}
		return models.ResetCode{}, s.reject()
	}
	if subtle.ConstantTimeCompare([]byte(stored.Code), []byte(strings.TrimSpace(code))) != 1 {
		return models.ResetCode{}, s.reject()
	}
	return stored, nil
}

func (s *ResetCodeService) reject() error {
	s.metrics.RecordResetCodeRejected()
	return appErrors.Clone(appErrors.ErrInvalidResetCode, "")
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(resetCodeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
