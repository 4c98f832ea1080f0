package repository

import (
	"context"

	"github.com/google/uuid"

	"ebis/models"
)

// AuthRepository manages accounts and sessions
type AuthRepository interface {
	// Login checks credentials and opens a session. Rejected attempts
	// return a *ValidationError.
	Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error)
	// Register creates an account and logs it in
	Register(ctx context.Context, creds models.RegisterCredentials) (*models.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	VerifyToken(ctx context.Context, token string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, update models.UserUpdate) (*models.User, error)
	// RequestPasswordReset issues a one-time reset token for email
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	// PurgeExpiredSessions drops expired sessions and reset tokens
	PurgeExpiredSessions(ctx context.Context) (int, error)
}

// HistoryRepository keeps each user's past analyses, newest first
type HistoryRepository interface {
	Add(ctx context.Context, rec *models.HistoryRecord) error
	List(ctx context.Context, userID string, limit int) ([]models.HistoryRecord, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.HistoryRecord, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	SetFavorite(ctx context.Context, userID string, id uuid.UUID, favorite bool) (*models.HistoryRecord, error)
	Clear(ctx context.Context, userID string) (int, error)
}

// Compile-time interface verification
var _ AuthRepository = (*KVAuthRepository)(nil)
var _ HistoryRepository = (*KVHistoryRepository)(nil)
