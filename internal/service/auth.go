// Package service contains the business logic layer of the application.
//
// Services sit between callers (the CLI today, HTTP handlers if a transport
// is ever added) and the database manager. They validate input, enforce the
// account and session rules, and translate storage results into the apperror
// taxonomy. Nothing above this layer touches the kvstore, and nothing below
// it knows about sessions or passwords.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/learncode/internal/apperror"
	"github.com/sakif/learncode/internal/auth"
	"github.com/sakif/learncode/internal/database"
	"github.com/sakif/learncode/internal/model"
)

// resetTokenDuration is how long a password-reset token stays redeemable.
const resetTokenDuration = 24 * time.Hour

// AuthService handles registration, login, sessions, password resets, and
// profile updates.
type AuthService struct {
	db        *database.Manager
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	limiter   *auth.LoginLimiter
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this when wiring the dependency graph in main.
func NewAuthService(
	db *database.Manager,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	limiter *auth.LoginLimiter,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		db:        db,
		passwords: passwords,
		tokens:    tokens,
		limiter:   limiter,
		logger:    logger,
	}
}

// Register creates a new account.
//
// Validation collects every violated password rule rather than stopping at
// the first, so the caller can present the full list. The email is
// normalized to lowercase before storing; duplicates (case-insensitive) come
// back as ErrConflict from the database manager.
//
// The returned user is sanitized — it never carries the password hash.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return model.User{}, apperror.ValidationFailed("name", "name is required")
	}
	if email == "" {
		return model.User{}, apperror.ValidationFailed("email", "email is required")
	}
	if !auth.ValidateEmail(email) {
		return model.User{}, apperror.ValidationFailed("email", "invalid email format")
	}
	if violations := auth.ValidatePassword(password); len(violations) > 0 {
		return model.User{}, apperror.ValidationFailed("password", strings.Join(violations, ". "))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return model.User{}, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	now := time.Now()
	user := model.User{
		ID:           xid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.SaveUser(ctx, user); err != nil {
		return model.User{}, err
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("email", user.Email))
	return user.Sanitized(), nil
}

// Login verifies credentials and installs a new session in the single
// session slot, valid for auth.SessionDuration from now.
//
// The same ErrAuth value and message cover "no such user" and "wrong
// password" so a caller cannot tell which one happened. Attempts are counted
// against the sliding-window limiter keyed by email; a successful login
// resets the counter.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.Session{}, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return model.Session{}, apperror.ValidationFailed("password", "password is required")
	}

	if result := s.limiter.Check(email); !result.Allowed {
		s.logger.Warn("login rate limited", slog.String("email", email))
		return model.Session{}, &apperror.AppError{
			Err:     apperror.ErrAuth,
			Message: fmt.Sprintf("too many login attempts, try again after %s", result.RetryAfter.Format(time.RFC3339)),
		}
	}

	users, err := s.db.GetUsers(ctx)
	if err != nil {
		return model.Session{}, err
	}

	var user *model.User
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return model.Session{}, apperror.AuthFailed()
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return model.Session{}, apperror.AuthFailed()
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return model.Session{}, fmt.Errorf("service/auth: generating session token: %w", err)
	}

	session := model.Session{
		User:      user.Sanitized(),
		Token:     token,
		ExpiresAt: time.Now().Add(auth.SessionDuration).UnixMilli(),
	}
	if err := s.db.SetSession(ctx, session); err != nil {
		return model.Session{}, err
	}

	s.limiter.Reset(email)
	s.logger.Info("user logged in", slog.String("userID", user.ID), slog.String("email", user.Email))
	return session, nil
}

// GetSession returns the active session, or nil when none exists.
//
// Expiry is lazy: a session whose ExpiresAt has passed is cleared here and
// reported as absent. There is no background sweep. A corrupted slot is
// cleared by the database manager and also reads as absent.
func (s *AuthService) GetSession(ctx context.Context) (*model.Session, error) {
	session, err := s.db.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if session.Expired(time.Now()) {
		s.logger.Debug("session expired, clearing")
		if err := s.db.ClearSession(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return session, nil
}

// RefreshSession extends the active session's expiry to now plus the full
// window. Returns false when no live session exists.
func (s *AuthService) RefreshSession(ctx context.Context) (bool, error) {
	session, err := s.GetSession(ctx)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	session.ExpiresAt = time.Now().Add(auth.SessionDuration).UnixMilli()
	if err := s.db.SetSession(ctx, *session); err != nil {
		return false, err
	}
	return true, nil
}

// Logout unconditionally clears the session slot. Idempotent.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.db.ClearSession(ctx)
}

// CurrentUser returns the user snapshot from the active session, or nil.
func (s *AuthService) CurrentUser(ctx context.Context) (*model.User, error) {
	session, err := s.GetSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	user := session.User
	return &user, nil
}

// CheckRateLimit reports whether another login attempt for identifier is
// currently allowed, recording the attempt.
func (s *AuthService) CheckRateLimit(identifier string) auth.RateLimitResult {
	return s.limiter.Check(identifier)
}

// RequestPasswordReset issues a reset token for the given email.
//
// To prevent email enumeration the call succeeds even when the address is
// unknown — it just doesn't create a token (the returned token is empty).
// Issuing a token removes any earlier tokens for the same email, keeping at
// most one live token per address. In a deployed system the token would be
// emailed, never returned to the requester; the CLI surface here plays the
// role of the mail carrier.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	if !auth.ValidateEmail(email) {
		return "", apperror.ValidationFailed("email", "invalid email format")
	}

	users, err := s.db.GetUsers(ctx)
	if err != nil {
		return "", err
	}
	known := false
	for _, user := range users {
		if strings.EqualFold(user.Email, email) {
			known = true
			break
		}
	}
	if !known {
		s.logger.Warn("password reset requested for unknown email", slog.String("email", email))
		return "", nil
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return "", err
	}

	tokens, err := s.db.GetResetTokens(ctx)
	if err != nil {
		return "", err
	}
	kept := tokens[:0:0]
	for _, t := range tokens {
		if !strings.EqualFold(t.Email, email) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, model.ResetToken{
		Email:     email,
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenDuration).UnixMilli(),
		Used:      false,
	})
	if err := s.db.SetResetTokens(ctx, kept); err != nil {
		return "", err
	}

	if err := s.db.LogEvent(ctx, model.EventInfo, "password reset token issued",
		map[string]string{"email": email}, ""); err != nil {
		s.logger.Warn("failed to record reset event", slog.String("error", err.Error()))
	}

	s.logger.Info("password reset token issued", slog.String("email", email))
	return token, nil
}

// ValidateResetToken checks a reset token and returns the email it was
// issued for. Unknown, already-used, and expired tokens each fail with a
// distinct reason.
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperror.ValidationFailed("token", "reset token is required")
	}

	tokens, err := s.db.GetResetTokens(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range tokens {
		if t.Token != token {
			continue
		}
		if t.Used {
			return "", apperror.ValidationFailed("token", "reset token has already been used")
		}
		if t.Expired(time.Now()) {
			return "", apperror.ValidationFailed("token", "reset token has expired")
		}
		return t.Email, nil
	}
	return "", apperror.NotFound("reset token", token)
}

// ResetPasswordWithToken sets a new password for the account the token was
// issued to, then marks the token used. Single-use: a second attempt with
// the same token fails with "already used".
func (s *AuthService) ResetPasswordWithToken(ctx context.Context, token, newPassword string) error {
	email, err := s.ValidateResetToken(ctx, token)
	if err != nil {
		return err
	}
	if violations := auth.ValidatePassword(newPassword); len(violations) > 0 {
		return apperror.ValidationFailed("password", strings.Join(violations, ". "))
	}

	users, err := s.db.GetUsers(ctx)
	if err != nil {
		return err
	}
	var userID string
	for _, user := range users {
		if strings.EqualFold(user.Email, email) {
			userID = user.ID
			break
		}
	}
	if userID == "" {
		return apperror.NotFound("user", email)
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	if _, err := s.db.UpdateUser(ctx, userID, model.UserPatch{PasswordHash: &hash}); err != nil {
		return err
	}

	tokens, err := s.db.GetResetTokens(ctx)
	if err != nil {
		return err
	}
	for i := range tokens {
		if tokens[i].Token == token {
			tokens[i].Used = true
		}
	}
	if err := s.db.SetResetTokens(ctx, tokens); err != nil {
		return err
	}

	s.logger.Info("password reset completed", slog.String("userID", userID))
	return nil
}

// ChangePassword replaces a user's password after verifying the current one.
// The new password goes through the same policy as registration.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if userID == "" || currentPassword == "" || newPassword == "" {
		return apperror.ValidationFailed("password", "all fields are required")
	}

	users, err := s.db.GetUsers(ctx)
	if err != nil {
		return err
	}
	var user *model.User
	for i := range users {
		if users[i].ID == userID {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return apperror.NotFound("user", userID)
	}

	if err := s.passwords.Verify(user.PasswordHash, currentPassword); err != nil {
		return apperror.ValidationFailed("currentPassword", "current password is incorrect")
	}
	if violations := auth.ValidatePassword(newPassword); len(violations) > 0 {
		return apperror.ValidationFailed("password", strings.Join(violations, ". "))
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	if _, err := s.db.UpdateUser(ctx, userID, model.UserPatch{PasswordHash: &hash}); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

// UpdateProfile changes a user's name. The name must be non-empty after
// trimming. When the edited user is the one in the active session, the
// session's embedded snapshot is refreshed along with its expiry.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name string) (model.User, error) {
	if userID == "" {
		return model.User{}, apperror.ValidationFailed("userId", "user ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, apperror.ValidationFailed("name", "name cannot be empty")
	}

	updated, err := s.db.UpdateUser(ctx, userID, model.UserPatch{Name: &name})
	if err != nil {
		return model.User{}, err
	}

	// Lazy expiry applies here too: an expired session must not come back
	// to life just because its user edited their profile.
	session, err := s.GetSession(ctx)
	if err != nil {
		return model.User{}, err
	}
	if session != nil && session.User.ID == userID {
		session.User = updated.Sanitized()
		session.ExpiresAt = time.Now().Add(auth.SessionDuration).UnixMilli()
		if err := s.db.SetSession(ctx, *session); err != nil {
			return model.User{}, err
		}
	}

	s.logger.Info("profile updated", slog.String("userID", userID))
	return updated.Sanitized(), nil
}

// CleanupExpiredTokens prunes reset tokens that are expired or used and
// returns how many were removed. A maintenance operation — nothing schedules
// it; the CLI exposes it.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) (int, error) {
	tokens, err := s.db.GetResetTokens(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	kept := tokens[:0:0]
	for _, t := range tokens {
		if !t.Used && !t.Expired(now) {
			kept = append(kept, t)
		}
	}
	removed := len(tokens) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.db.SetResetTokens(ctx, kept); err != nil {
		return 0, err
	}

	s.logger.Info("cleaned up reset tokens", slog.Int("removed", removed))
	return removed, nil
}
