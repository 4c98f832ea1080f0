package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ebis/models"
	"ebis/observability"
	"ebis/storage"
)

// Storage keys
const (
	UsersKey          = "ebis_users"
	SessionsKey       = "ebis_sessions"
	PasswordResetsKey = "ebis_password_resets"
)

// Demo account seeded into an empty user list
const (
	DemoUserID       = "1"
	DemoUserEmail    = "demo@ebis.com"
	DemoUserPassword = "password"
	demoUserName     = "Demo User"
	demoUserAvatar   = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthOptions tunes KVAuthRepository
type AuthOptions struct {
	SessionTTL        time.Duration
	ResetTTL          time.Duration
	BcryptCost        int
	MinPasswordLength int
	SeedDemoUser      bool
}

// DefaultAuthOptions matches the stock configuration
var DefaultAuthOptions = AuthOptions{
	SessionTTL:        24 * time.Hour,
	ResetTTL:          time.Hour,
	BcryptCost:        bcrypt.DefaultCost,
	MinPasswordLength: 6,
	SeedDemoUser:      true,
}

// passwordReset is a pending one-time reset token
type passwordReset struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// KVAuthRepository keeps users, sessions and reset tokens as JSON lists
// in a storage.Store
type KVAuthRepository struct {
	store storage.Store
	opts  AuthOptions
	now   func() time.Time

	// serialises read-modify-write cycles on the stored lists
	mu sync.Mutex
}

// NewKVAuthRepository creates an auth repository over store
func NewKVAuthRepository(store storage.Store, opts AuthOptions) *KVAuthRepository {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultAuthOptions.SessionTTL
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = DefaultAuthOptions.ResetTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = DefaultAuthOptions.BcryptCost
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = DefaultAuthOptions.MinPasswordLength
	}
	return &KVAuthRepository{store: store, opts: opts, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// loadUsers returns the stored users, seeding the demo account into an
// empty store. Callers hold r.mu.
func (r *KVAuthRepository) loadUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	found, err := storage.GetJSON(ctx, r.store, UsersKey, &users)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	if found || !r.opts.SeedDemoUser {
		return users, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoUserPassword), r.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash demo password: %w", err)
	}
	seeded := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	users = []models.User{{
		ID:           DemoUserID,
		Email:        DemoUserEmail,
		Name:         demoUserName,
		Avatar:       demoUserAvatar,
		PasswordHash: string(hash),
		CreatedAt:    seeded,
		UpdatedAt:    seeded,
	}}
	if err := r.saveUsers(ctx, users); err != nil {
		return nil, err
	}
	observability.Info("seeded demo user", "email", DemoUserEmail)
	return users, nil
}

func (r *KVAuthRepository) saveUsers(ctx context.Context, users []models.User) error {
	if err := storage.SetJSON(ctx, r.store, UsersKey, users); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

func (r *KVAuthRepository) loadSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if _, err := storage.GetJSON(ctx, r.store, SessionsKey, &sessions); err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return sessions, nil
}

func (r *KVAuthRepository) saveSessions(ctx context.Context, sessions []models.Session) error {
	if err := storage.SetJSON(ctx, r.store, SessionsKey, sessions); err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}
	return nil
}

func (r *KVAuthRepository) loadResets(ctx context.Context) ([]passwordReset, error) {
	var resets []passwordReset
	if _, err := storage.GetJSON(ctx, r.store, PasswordResetsKey, &resets); err != nil {
		return nil, fmt.Errorf("failed to load password resets: %w", err)
	}
	return resets, nil
}

func (r *KVAuthRepository) saveResets(ctx context.Context, resets []passwordReset) error {
	if err := storage.SetJSON(ctx, r.store, PasswordResetsKey, resets); err != nil {
		return fmt.Errorf("failed to save password resets: %w", err)
	}
	return nil
}

func findUserByEmail(users []models.User, email string) int {
	for i := range users {
		if normalizeEmail(users[i].Email) == email {
			return i
		}
	}
	return -1
}

func findUserByID(users []models.User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

// openSession appends a fresh session for userID. Callers hold r.mu.
func (r *KVAuthRepository) openSession(ctx context.Context, userID string) (string, error) {
	sessions, err := r.loadSessions(ctx)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	sessions = append(sessions, models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: r.now().Add(r.opts.SessionTTL),
	})
	if err := r.saveSessions(ctx, sessions); err != nil {
		return "", err
	}
	return token, nil
}

// Login checks the password against the stored bcrypt hash and opens a session
func (r *KVAuthRepository) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error) {
	if creds.Email == "" || creds.Password == "" {
		fields := map[string]string{}
		if creds.Email == "" {
			fields["email"] = "Email is required"
		}
		if creds.Password == "" {
			fields["password"] = "Password is required"
		}
		return nil, validationError(ErrValidation, "Email and password are required", fields)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	i := findUserByEmail(users, normalizeEmail(creds.Email))
	if i < 0 {
		return nil, validationError(ErrInvalidCredentials, "Invalid email or password",
			map[string]string{"email": "User not found"})
	}
	user := users[i]

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, validationError(ErrInvalidCredentials, "Invalid email or password",
			map[string]string{"password": "Invalid password"})
	}

	token, err := r.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	public := user.Public()
	return &models.AuthResponse{
		Success: true,
		User:    &public,
		Token:   token,
		Message: "Login successful",
	}, nil
}

func (r *KVAuthRepository) validateRegistration(creds models.RegisterCredentials) map[string]string {
	fields := map[string]string{}
	if creds.Email == "" {
		fields["email"] = "Email is required"
	}
	if creds.Password == "" {
		fields["password"] = "Password is required"
	}
	if strings.TrimSpace(creds.Name) == "" {
		fields["name"] = "Name is required"
	}
	if creds.Password != "" && len(creds.Password) < r.opts.MinPasswordLength {
		fields["password"] = fmt.Sprintf("Password must be at least %d characters", r.opts.MinPasswordLength)
	}
	if creds.Email != "" && !emailPattern.MatchString(strings.TrimSpace(creds.Email)) {
		fields["email"] = "Invalid email format"
	}
	return fields
}

// Register validates the payload, creates the account and logs it in
func (r *KVAuthRepository) Register(ctx context.Context, creds models.RegisterCredentials) (*models.AuthResponse, error) {
	if fields := r.validateRegistration(creds); len(fields) > 0 {
		return nil, validationError(ErrValidation, "Validation failed", fields)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(creds.Email)
	if findUserByEmail(users, email) >= 0 {
		return nil, validationError(ErrUserExists, "User already exists",
			map[string]string{"email": "Email is already registered"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), r.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := r.now()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(creds.Name),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	users = append(users, user)
	if err := r.saveUsers(ctx, users); err != nil {
		return nil, err
	}

	token, err := r.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	public := user.Public()
	return &models.AuthResponse{
		Success: true,
		User:    &public,
		Token:   token,
		Message: "Registration successful",
	}, nil
}

// Logout removes the session for token. Unknown tokens are ignored.
func (r *KVAuthRepository) Logout(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.loadSessions(ctx)
	if err != nil {
		return err
	}

	kept := sessions[:0]
	for _, s := range sessions {
		if s.Token != token {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(sessions) {
		return nil
	}
	return r.saveSessions(ctx, kept)
}

// VerifyToken returns the user owning a live session
func (r *KVAuthRepository) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.loadSessions(ctx)
	if err != nil {
		return nil, err
	}

	var session *models.Session
	for i := range sessions {
		if sessions[i].Token == token {
			session = &sessions[i]
			break
		}
	}
	if session == nil {
		return nil, ErrInvalidToken
	}
	if session.Expired(r.now()) {
		return nil, ErrSessionExpired
	}

	users, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	i := findUserByID(users, session.UserID)
	if i < 0 {
		return nil, ErrUserNotFound
	}
	public := users[i].Public()
	return &public, nil
}

// GetUserByID returns the public view of a user
func (r *KVAuthRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	i := findUserByID(users, id)
	if i < 0 {
		return nil, ErrUserNotFound
	}
	public := users[i].Public()
	return &public, nil
}

// UpdateUser applies the non-nil fields of update
func (r *KVAuthRepository) UpdateUser(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	i := findUserByID(users, id)
	if i < 0 {
		return nil, ErrUserNotFound
	}

	user := users[i]
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, validationError(ErrValidation, "Validation failed",
				map[string]string{"name": "Name is required"})
		}
		user.Name = name
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if !emailPattern.MatchString(email) {
			return nil, validationError(ErrValidation, "Validation failed",
				map[string]string{"email": "Invalid email format"})
		}
		if j := findUserByEmail(users, email); j >= 0 && j != i {
			return nil, validationError(ErrUserExists, "User already exists",
				map[string]string{"email": "Email is already registered"})
		}
		user.Email = email
	}
	if update.Avatar != nil {
		user.Avatar = strings.TrimSpace(*update.Avatar)
	}
	user.UpdatedAt = r.now()

	users[i] = user
	if err := r.saveUsers(ctx, users); err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

// RequestPasswordReset stores a reset token for the account behind email.
// Delivering the token is left to the caller.
func (r *KVAuthRepository) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadUsers(ctx)
	if err != nil {
		return "", err
	}
	i := findUserByEmail(users, normalizeEmail(email))
	if i < 0 {
		return "", ErrUserNotFound
	}

	resets, err := r.loadResets(ctx)
	if err != nil {
		return "", err
	}

	// one outstanding token per user
	kept := resets[:0]
	for _, rs := range resets {
		if rs.UserID != users[i].ID {
			kept = append(kept, rs)
		}
	}

	token := uuid.NewString()
	kept = append(kept, passwordReset{
		Token:     token,
		UserID:    users[i].ID,
		ExpiresAt: r.now().Add(r.opts.ResetTTL),
	})
	if err := r.saveResets(ctx, kept); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token, sets the new password and ends
// the user's open sessions
func (r *KVAuthRepository) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < r.opts.MinPasswordLength {
		return validationError(ErrValidation, "Validation failed", map[string]string{
			"password": fmt.Sprintf("Password must be at least %d characters", r.opts.MinPasswordLength),
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	resets, err := r.loadResets(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i := range resets {
		if resets[i].Token == token {
			idx = i
			break
		}
	}
	if idx < 0 || !resets[idx].ExpiresAt.After(r.now()) {
		return ErrInvalidToken
	}
	reset := resets[idx]

	users, err := r.loadUsers(ctx)
	if err != nil {
		return err
	}
	u := findUserByID(users, reset.UserID)
	if u < 0 {
		return ErrUserNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	users[u].PasswordHash = string(hash)
	users[u].UpdatedAt = r.now()
	if err := r.saveUsers(ctx, users); err != nil {
		return err
	}

	resets = append(resets[:idx], resets[idx+1:]...)
	if err := r.saveResets(ctx, resets); err != nil {
		return err
	}

	sessions, err := r.loadSessions(ctx)
	if err != nil {
		return err
	}
	kept := sessions[:0]
	for _, s := range sessions {
		if s.UserID != reset.UserID {
			kept = append(kept, s)
		}
	}
	return r.saveSessions(ctx, kept)
}

// PurgeExpiredSessions removes expired sessions and reset tokens and
// returns how many sessions were dropped
func (r *KVAuthRepository) PurgeExpiredSessions(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	sessions, err := r.loadSessions(ctx)
	if err != nil {
		return 0, err
	}
	live := sessions[:0]
	for _, s := range sessions {
		if !s.Expired(now) {
			live = append(live, s)
		}
	}
	removed := len(sessions) - len(live)
	if removed > 0 {
		if err := r.saveSessions(ctx, live); err != nil {
			return 0, err
		}
	}

	resets, err := r.loadResets(ctx)
	if err != nil {
		return removed, err
	}
	pending := resets[:0]
	for _, rs := range resets {
		if rs.ExpiresAt.After(now) {
			pending = append(pending, rs)
		}
	}
	if len(pending) != len(resets) {
		if err := r.saveResets(ctx, pending); err != nil {
			return removed, err
		}
	}

	return removed, nil
}

// IsAuthFailure reports whether err is a rejected credential or token
// rather than an infrastructure failure
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrUserNotFound)
}
