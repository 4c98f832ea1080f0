package app

import (
	"context"
	"errors"

	"ebis/models"
	"ebis/observability"
	"ebis/repository"
)

// ResetNotifier delivers password reset tokens to their owner
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, token string) error
}

// LogNotifier writes reset tokens to the log. It stands in for a mailer
// in development setups.
type LogNotifier struct{}

func (LogNotifier) NotifyPasswordReset(ctx context.Context, email, token string) error {
	observability.WithContext(ctx).Info("password reset requested", "email", email, "token", token)
	return nil
}

// AuthService fronts the auth repository with metrics and logging
type AuthService struct {
	repo     repository.AuthRepository
	notifier ResetNotifier
}

// NewAuthService creates an AuthService. A nil notifier logs reset tokens.
func NewAuthService(repo repository.AuthRepository, notifier ResetNotifier) *AuthService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &AuthService{repo: repo, notifier: notifier}
}

// FailureResponse turns a rejected login or registration into the
// response shape clients expect. Other errors yield nil.
func FailureResponse(err error) *models.AuthResponse {
	var ve *repository.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	return &models.AuthResponse{
		Success: false,
		Message: ve.Message,
		Errors:  ve.Fields,
	}
}

func (s *AuthService) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error) {
	resp, err := s.repo.Login(ctx, creds)
	observability.GetMetrics().RecordAuthEvent("login", err == nil)
	if err != nil {
		observability.WithContext(ctx).Debug("login rejected", "error", err)
		return nil, err
	}
	observability.WithUser(resp.User.ID).Info("user logged in")
	return resp, nil
}

func (s *AuthService) Register(ctx context.Context, creds models.RegisterCredentials) (*models.AuthResponse, error) {
	resp, err := s.repo.Register(ctx, creds)
	observability.GetMetrics().RecordAuthEvent("register", err == nil)
	if err != nil {
		return nil, err
	}
	observability.WithUser(resp.User.ID).Info("user registered")
	return resp, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	err := s.repo.Logout(ctx, token)
	observability.GetMetrics().RecordAuthEvent("logout", err == nil)
	return err
}

// CurrentUser resolves a bearer token to its user
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	user, err := s.repo.VerifyToken(ctx, token)
	if err != nil {
		observability.GetMetrics().RecordAuthEvent("verify", false)
		if !repository.IsAuthFailure(err) {
			observability.WithContext(ctx).Error("token verification failed", "error", err)
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update models.UserUpdate) (*models.User, error) {
	user, err := s.repo.UpdateUser(ctx, userID, update)
	observability.GetMetrics().RecordAuthEvent("update_profile", err == nil)
	return user, err
}

// RequestPasswordReset issues a reset token and hands it to the notifier.
// Unknown emails succeed silently so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	token, err := s.repo.RequestPasswordReset(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		observability.GetMetrics().RecordAuthEvent("password_reset_request", false)
		return nil
	}
	if err != nil {
		observability.GetMetrics().RecordAuthEvent("password_reset_request", false)
		return err
	}
	observability.GetMetrics().RecordAuthEvent("password_reset_request", true)
	return s.notifier.NotifyPasswordReset(ctx, email, token)
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	err := s.repo.ResetPassword(ctx, token, newPassword)
	observability.GetMetrics().RecordAuthEvent("password_reset", err == nil)
	return err
}

// PurgeExpiredSessions drops expired sessions and reset tokens
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return s.repo.PurgeExpiredSessions(ctx)
}
