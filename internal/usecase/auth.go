package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mechanic-assistant/internal/domain"
)

const (
	bcryptCost        = 10
	maxPasswordLength = 128
	defaultSessionTTL = 7 * 24 * time.Hour
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type AuthService struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
	now        func() time.Time
}

type Credentials struct {
	Email    string
	Password string
}

// AuthOutput is returned by Register and Login.
type AuthOutput struct {
	Email   string
	Session domain.Session
}

type AuthStatus struct {
	Authenticated bool
	Email         string
}

func NewAuthService(users UserStore, sessions SessionStore, sessionTTL time.Duration) (*AuthService, error) {
	if users == nil {
		return nil, errors.New("usecase: user store must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &AuthService{users: users, sessions: sessions, sessionTTL: sessionTTL, now: time.Now}, nil
}

// ValidateEmail reports whether email looks like local@domain.tld.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword checks the trimmed password length and returns a
// user-facing message when it is invalid.
func ValidatePassword(password string) (bool, string) {
	trimmed := strings.TrimSpace(password)
	if len(trimmed) < 1 {
		return false, "Password is required"
	}
	if len([]rune(trimmed)) > maxPasswordLength {
		return false, "Password must not exceed 128 characters"
	}
	return true, ""
}

func (s *AuthService) Register(ctx context.Context, in Credentials) (AuthOutput, error) {
	email := normalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return AuthOutput{}, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return AuthOutput{}, newError(ErrorInternal, "password_hash_error", err)
	}
	now := s.now().UTC()
	err = s.users.CreateUser(ctx, domain.User{
		ID:           newUUID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		return AuthOutput{}, newError(ErrorEmailTaken, "email_taken", err)
	}
	if err != nil {
		return AuthOutput{}, newError(ErrorInternal, "user_create_error", err)
	}
	return s.startSession(ctx, email)
}

func (s *AuthService) Login(ctx context.Context, in Credentials) (AuthOutput, error) {
	email := normalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return AuthOutput{}, err
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return AuthOutput{}, newError(ErrorInternal, "user_lookup_error", err)
	}
	if user == nil || !verifyPassword(in.Password, user.PasswordHash) {
		return AuthOutput{}, newError(ErrorInvalidCredentials, "invalid_credentials", nil)
	}
	return s.startSession(ctx, user.Email)
}

// Logout deletes the session behind token. An empty token is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return newError(ErrorInternal, "session_delete_error", err)
	}
	return nil
}

// Status resolves token to the signed-in user, if any.
func (s *AuthService) Status(ctx context.Context, token string) (AuthStatus, error) {
	if strings.TrimSpace(token) == "" {
		return AuthStatus{}, nil
	}
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return AuthStatus{}, newError(ErrorInternal, "session_lookup_error", err)
	}
	if session == nil || session.Expired(s.now()) {
		return AuthStatus{}, nil
	}
	user, err := s.users.FindUserByEmail(ctx, session.Email)
	if err != nil {
		return AuthStatus{}, newError(ErrorInternal, "user_lookup_error", err)
	}
	if user == nil {
		return AuthStatus{}, nil
	}
	return AuthStatus{Authenticated: true, Email: user.Email}, nil
}

func (s *AuthService) startSession(ctx context.Context, email string) (AuthOutput, error) {
	session := domain.Session{
		Token:     newUUID(),
		Email:     email,
		ExpiresAt: s.now().Add(s.sessionTTL).UTC(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return AuthOutput{}, newError(ErrorInternal, "session_create_error", err)
	}
	return AuthOutput{Email: email, Session: session}, nil
}

func validateCredentials(email, password string) error {
	if !ValidateEmail(email) {
		e := newError(ErrorInvalidInput, "invalid_email", nil)
		e.Details = "Invalid email address"
		return e
	}
	if ok, msg := ValidatePassword(password); !ok {
		e := newError(ErrorInvalidInput, "invalid_password", nil)
		e.Details = msg
		return e
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// bcrypt only reads 72 bytes, so the password is digested first.
func passwordDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(passwordDigest(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), passwordDigest(password)) == nil
}

var newUUID = func() string {
	return uuid.NewString()
}
