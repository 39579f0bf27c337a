package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/notify"
	"tourdesk/internal/obs"
	"tourdesk/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const resetCodeDigits = 6

// ResetLimiter throttles reset-code requests per key. A positive retryAfter
// means the request is refused.
type ResetLimiter interface {
	Allow(ctx context.Context, key string) (retryAfter time.Duration, err error)
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyResetCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type ResetConfig struct {
	CodeTTL     time.Duration
	MaxAttempts int
}

// PasswordResetService issues and redeems one-time reset codes
type PasswordResetService interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type passwordResetService struct {
	users    repository.UserRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	notifier Notifier
	limiter  ResetLimiter
	cfg      ResetConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewPasswordResetService returns a new instance of PasswordResetService
func NewPasswordResetService(
	users repository.UserRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	notifier Notifier,
	limiter ResetLimiter,
	cfg ResetConfig,
	log *zap.Logger,
) PasswordResetService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &passwordResetService{
		users:    users,
		audit:    audit,
		tx:       tx,
		notifier: notifier,
		limiter:  limiter,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// randomCode returns n decimal digits from crypto/rand, zero padded.
func randomCode(n int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}

func (s *passwordResetService) RequestCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("Email is required.")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err = lookupErr(err, "No account found with that email."); errors.Is(err, ErrNotFound) {
			obs.PasswordResetRequests.WithLabelValues("unknown_email").Inc()
		}
		return err
	}

	if s.limiter != nil {
		wait, err := s.limiter.Allow(ctx, email)
		switch {
		case err != nil:
			s.log.Warn("reset limiter unavailable", zap.Error(err))
		case wait > 0:
			obs.PasswordResetRequests.WithLabelValues("limited").Inc()
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many reset requests. Please try again in %d seconds.", int(wait.Round(time.Second).Seconds())),
				RetryAfter: wait,
			}
		}
	}

	code, err := randomCode(resetCodeDigits)
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash reset code")
	}
	hash := string(hashed)
	expires := s.now().Add(s.cfg.CodeTTL)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.SetResetCode(txCtx, user.ID, &hash, &expires); err != nil {
			return err
		}
		return s.notifier.Enqueue(txCtx, notify.Message{
			Kind:      model.NotifyPasswordReset,
			To:        user.Email,
			FirstName: user.FirstName,
			Data: map[string]string{
				"code":       code,
				"expires_in": fmt.Sprintf("%d minutes", int(s.cfg.CodeTTL.Minutes())),
			},
		})
	})
	if err != nil {
		return err
	}
	obs.PasswordResetRequests.WithLabelValues("sent").Inc()
	return nil
}

func (s *passwordResetService) VerifyCode(ctx context.Context, email, code string) error {
	return s.redeem(ctx, email, code, nil)
}

func (s *passwordResetService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return invalid("Password must be at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash password")
	}

	var userID string
	err = s.redeem(ctx, email, code, func(txCtx context.Context, user *model.User) error {
		userID = user.ID.String()
		if err := s.users.SetPassword(txCtx, user.ID, string(hashed)); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audit, nil, model.ActionResetPassword, userID, user.FullName(), nil)
	})
	if err != nil {
		return err
	}
	s.log.Info("password reset", zap.String("user_id", userID))
	return nil
}

// redeem checks code against the stored hash with the user row locked, so
// parallel guesses are counted one by one. Every wrong guess is recorded and the
// code is discarded once it expires or the attempt limit is reached. onValid runs
// in the same transaction after a correct code.
func (s *passwordResetService) redeem(ctx context.Context, email, code string, onValid func(context.Context, *model.User) error) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return invalid("Email and code are required.")
	}

	// outcome is a rejection that must still commit the attempt bookkeeping
	var outcome error
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.LockByEmail(txCtx, email)
		if err != nil {
			return lookupErr(err, "No account found with that email.")
		}
		if user.ResetCodeHash == nil || user.ResetCodeExpiresAt == nil {
			outcome = invalid("No reset code has been requested for this account.")
			return nil
		}
		if !s.now().Before(*user.ResetCodeExpiresAt) {
			outcome = invalid("The reset code has expired. Please request a new one.")
			return s.users.SetResetCode(txCtx, user.ID, nil, nil)
		}
		if bcrypt.CompareHashAndPassword([]byte(*user.ResetCodeHash), []byte(code)) != nil {
			attempts, err := s.users.IncrementResetAttempts(txCtx, user.ID)
			if err != nil {
				return err
			}
			outcome = invalid("Invalid reset code.")
			if attempts >= s.cfg.MaxAttempts {
				outcome = invalid("Too many incorrect attempts. Please request a new code.")
				return s.users.SetResetCode(txCtx, user.ID, nil, nil)
			}
			return nil
		}
		if onValid != nil {
			return onValid(txCtx, user)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return outcome
}
