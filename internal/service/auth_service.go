package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/pkg/clock"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
	"github.com/noah-isme/school-attendance/pkg/mailer"
)

// User facing messages of the account flows.
const (
	MessageMissingCredentials = "Please provide both Email and Password."
	MessageInvalidCredentials = "Invalid email or password."
	MessageMissingEmail       = "Please provide an email address."
	MessageMissingCode        = "Email and code are required."
	MessageMissingResetFields = "All fields are required."
	MessageResetCodeSent      = "If the email exists, a reset code has been sent to your email."
	MessageResetCodeOnScreen  = "Email sending failed in this environment. Use the code shown on-screen (for dev only)."
	MessagePasswordUpdated    = "Password updated. Please log in with your new password."

	resetMailSubject = "Your password reset code"
)

type teacherAccounts interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
	FindByEmail(ctx context.Context, email string) (*models.Teacher, error)
	UpdatePassword(ctx context.Context, id int64, password string) error
}

type studentAccounts interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	UpdatePassword(ctx context.Context, id int64, password string) error
}

type activeSessionResolver interface {
	ActiveForTeacher(ctx context.Context, teacherID int64) *models.TimetableEntry
}

// AccessTokenStore records the ids of bearer tokens that are still live.
// Logging out revokes the id, so a copied token stops working.
type AccessTokenStore interface {
	Put(ctx context.Context, id string, ttl time.Duration) error
	Active(ctx context.Context, id string) (bool, error)
	Revoke(ctx context.Context, id string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	// ExposeResetCode returns the code to the caller when mail delivery fails.
	ExposeResetCode bool
}

// AuthService implements login, bearer tokens and the reset-code password flow.
// Credentials are compared as opaque strings.
type AuthService struct {
	teachers teacherAccounts
	students studentAccounts
	schedule activeSessionResolver
	codes    *ResetCodeService
	tokens   AccessTokenStore
	mailer   mailer.Mailer
	clock    clock.Clock
	metrics  *MetricsService
	logger   *zap.Logger
	config   AuthConfig
}

// NewAuthService constructs an AuthService instance. Without a token store
// bearer tokens are never issued.
func NewAuthService(teachers teacherAccounts, students studentAccounts, schedule activeSessionResolver, codes *ResetCodeService, tokens AccessTokenStore, mail mailer.Mailer, clk clock.Clock, metrics *MetricsService, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 8 * time.Hour
	}
	return &AuthService{
		teachers: teachers,
		students: students,
		schedule: schedule,
		codes:    codes,
		tokens:   tokens,
		mailer:   mail,
		clock:    clk,
		metrics:  metrics,
		logger:   logger,
		config:   config,
	}
}

// Login checks teachers first, then students. A teacher whose class is in
// session now gets ActiveClassID set.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, MessageMissingCredentials)
	}

	teacher, err := s.teachers.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}
	if teacher != nil && credentialsMatch(teacher.Password, req.Password) {
		result := &models.LoginResult{Identity: models.SessionIdentity{
			Role:        teacher.Role(),
			SubjectID:   teacher.ID,
			SubjectName: teacher.Name,
		}}
		if result.Identity.Role == models.RoleTeacher && s.schedule != nil {
			if active := s.schedule.ActiveForTeacher(ctx, teacher.ID); active != nil {
				result.ActiveClassID = active.ClassID
			}
		}
		return s.withToken(ctx, result)
	}

	student, err := s.students.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student == nil || !credentialsMatch(student.Password, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, MessageInvalidCredentials)
	}
	return s.withToken(ctx, &models.LoginResult{Identity: models.SessionIdentity{
		Role:        models.RoleStudent,
		SubjectID:   student.ID,
		SubjectName: student.Name,
	}})
}

// ValidateToken parses a bearer token and returns its claims. Tokens revoked
// by RevokeToken are rejected.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if s.tokens == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	active, err := s.tokens.Active(ctx, claims.ID)
	if err != nil {
		s.logger.Warn("access token lookup failed", zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	if !active {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token revoked")
	}
	return claims, nil
}

// RevokeToken forgets a bearer token so later requests carrying it are
// anonymous. Tokens that do not parse are ignored.
func (s *AuthService) RevokeToken(ctx context.Context, tokenString string) error {
	claims, err := s.parseToken(tokenString)
	if err != nil || s.tokens == nil || claims.ID == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, claims.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke access token")
	}
	return nil
}

func (s *AuthService) parseToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ForgotPassword issues a reset code for a known email and mails it. When the
// mailer fails the flow still succeeds; the code is only handed back when
// ExposeResetCode is set.
func (s *AuthService) ForgotPassword(ctx context.Context, store ResetCodeStore, req models.ForgotPasswordRequest) (*models.ForgotPasswordResult, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, MessageMissingEmail)
	}
	known, err := s.emailKnown(ctx, email)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, appErrors.Clone(appErrors.ErrEmailNotFound, "")
	}

	code, err := s.codes.Issue(ctx, store, email)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Your password reset code is: <strong>%s</strong>. It expires in %s.", code.Code, humanMinutes(s.codes.ttl))
	sendErr := s.mailer.Send(ctx, email, resetMailSubject, body)
	if sendErr == nil {
		s.metrics.RecordResetCodeIssued(DeliveryMailed)
		return &models.ForgotPasswordResult{Message: MessageResetCodeSent, Delivered: true}, nil
	}

	s.logger.Warn("reset code mail failed", zap.Error(sendErr))
	if s.config.ExposeResetCode {
		s.metrics.RecordResetCodeIssued(DeliveryOnScreen)
		return &models.ForgotPasswordResult{
			Message:   MessageResetCodeOnScreen,
			DevCode:   code.Code,
			MailError: sendErr.Error(),
		}, nil
	}
	s.metrics.RecordResetCodeIssued(DeliveryFailed)
	return &models.ForgotPasswordResult{Message: MessageResetCodeSent}, nil
}

// VerifyResetCode checks a code without consuming it.
func (s *AuthService) VerifyResetCode(ctx context.Context, store ResetCodeStore, req models.ResetCodeRequest) error {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		return appErrors.Clone(appErrors.ErrValidation, MessageMissingCode)
	}
	return s.codes.Validate(ctx, store, req.Email, req.Code)
}

// ResetPassword redeems the code and rotates the credential of the teacher or,
// failing that, the student holding the email. The code is consumed before the
// identity lookup, so a vanished identity requires a new code.
func (s *AuthService) ResetPassword(ctx context.Context, store ResetCodeStore, req models.ResetPasswordRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Code) == "" || req.NewPassword == "" {
		return appErrors.Clone(appErrors.ErrValidation, MessageMissingResetFields)
	}
	if err := s.codes.Redeem(ctx, store, email, req.Code); err != nil {
		return err
	}

	teacher, err := s.teachers.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.teachers.UpdatePassword(ctx, teacher.ID, req.NewPassword); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
		}
		s.logger.Info("password reset", zap.String("role", string(models.RoleTeacher)), zap.Int64("subject_id", teacher.ID))
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}

	student, err := s.students.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUserNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if err := s.students.UpdatePassword(ctx, student.ID, req.NewPassword); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	s.logger.Info("password reset", zap.String("role", string(models.RoleStudent)), zap.Int64("subject_id", student.ID))
	return nil
}

func (s *AuthService) emailKnown(ctx context.Context, email string) (bool, error) {
	if _, err := s.teachers.FindByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}
	if _, err := s.students.FindByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return false, nil
}

func (s *AuthService) withToken(ctx context.Context, result *models.LoginResult) (*models.LoginResult, error) {
	if s.tokens == nil {
		return result, nil
	}
	token, err := s.generateAccessToken(ctx, result.Identity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	result.AccessToken = token
	result.ExpiresIn = int64(s.config.AccessTokenExpiry.Seconds())
	return result, nil
}

func (s *AuthService) generateAccessToken(ctx context.Context, identity models.SessionIdentity) (string, error) {
	issuedAt := s.clock.Now().UTC()
	id := uuid.NewString()
	claims := &models.JWTClaims{
		SubjectID:   identity.SubjectID,
		Role:        identity.Role,
		SubjectName: identity.SubjectName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(identity.SubjectID, 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", err
	}
	if err := s.tokens.Put(ctx, id, s.config.AccessTokenExpiry); err != nil {
		return "", fmt.Errorf("record access token: %w", err)
	}
	return signed, nil
}

func credentialsMatch(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

func humanMinutes(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
