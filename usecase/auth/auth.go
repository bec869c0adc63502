package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
)

const minPasswordLength = 8

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   *TokenManager
	cost     int
	logger   *zap.Logger
}

// Option customizes a UseCase.
type Option func(*UseCase)

// WithPasswordCost overrides the bcrypt cost, mainly to keep tests fast.
func WithPasswordCost(cost int) Option {
	return func(uc *UseCase) { uc.cost = cost }
}

func New(users repository.UserRepository, sessions repository.SessionRepository, tokens *TokenManager, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     domain.Role
}

// LoginResult is what a successful login or refresh hands back to the client.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	SessionID string       `json:"session_id"`
	User      *domain.User `json:"user"`
}

// Register creates an account. Administrators cannot self-register and
// provider accounts start PENDING.
func (uc *UseCase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if !in.Role.Valid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "unknown role")
	}
	if in.Role == domain.RoleAdmin {
		return nil, domain.NewError(domain.ErrCodeForbidden, "administrator accounts cannot be self-registered")
	}
	return uc.createUser(ctx, in, domain.InitialStatus(in.Role))
}

// EnsureAdmin creates an ACTIVE administrator if no account uses email yet.
func (uc *UseCase) EnsureAdmin(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	existing, err := uc.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			uc.logger.Warn("bootstrap admin email belongs to a non-admin account", zap.String("user_id", existing.ID))
		}
		return existing, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	user, err := uc.createUser(ctx, RegisterInput{
		Email:    email,
		Password: password,
		FullName: fullName,
		Role:     domain.RoleAdmin,
	}, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("bootstrap admin created", zap.String("user_id", user.ID))
	return user, nil
}

func (uc *UseCase) createUser(ctx context.Context, in RegisterInput, status domain.AccountStatus) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewError(domain.ErrCodeInvalid, "a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.NewError(domain.ErrCodeInvalid, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "unusable password", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         in.Role,
		Status:       status,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	uc.logger.Info("account registered",
		zap.String("user_id", user.ID),
		zap.Stringer("role", user.Role),
		zap.Stringer("status", user.Status))
	return user, nil
}

// Login verifies credentials, opens a session and issues a token. Unknown
// emails and wrong passwords produce the same error. Suspended and pending
// accounts may log in; the per-operation status check restricts them.
func (uc *UseCase) Login(ctx context.Context, email, password string, metadata map[string]string) (*LoginResult, error) {
	user, err := uc.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.tokens.TTL()),
		Metadata:  metadata,
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return uc.issue(user, session)
}

// Refresh extends the session and re-issues a token for it.
func (uc *UseCase) Refresh(ctx context.Context, principal *domain.Principal, sessionID string) (*LoginResult, error) {
	if principal == nil || sessionID == "" {
		return nil, domain.ErrUnauthorized
	}
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, mapSessionErr(err)
	}
	if session.UserID != principal.ID {
		return nil, domain.ErrUnauthorized
	}
	if err := uc.sessions.Extend(ctx, sessionID, uc.tokens.TTL()); err != nil {
		return nil, mapSessionErr(err)
	}
	session.ExpiresAt = time.Now().Add(uc.tokens.TTL())

	user, err := uc.users.GetByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	return uc.issue(user, session)
}

// Logout revokes the session the token was issued for.
func (uc *UseCase) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrUnauthorized
	}
	return uc.sessions.Delete(ctx, sessionID)
}

// Authenticate resolves a bearer token into the caller's principal and
// session id. The session must still exist and the account is reloaded so
// status changes apply immediately.
func (uc *UseCase) Authenticate(ctx context.Context, token string) (*domain.Principal, string, error) {
	claims, err := uc.tokens.Parse(token)
	if err != nil {
		return nil, "", err
	}
	session, err := uc.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, "", mapSessionErr(err)
	}
	if session.UserID != claims.UserID || session.IsExpired(time.Now()) {
		return nil, "", domain.ErrUnauthorized
	}
	user, err := uc.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrUnauthorized
		}
		return nil, "", err
	}
	return user.Principal(), session.ID, nil
}

func (uc *UseCase) issue(user *domain.User, session *domain.Session) (*LoginResult, error) {
	token, expires, err := uc.tokens.Issue(user, session)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: expires,
		SessionID: session.ID,
		User:      user,
	}, nil
}

func mapSessionErr(err error) error {
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.WrapError(domain.ErrCodeUnauthorized, "session expired", err)
	}
	return err
}
