// Package auth is the identity provider: password accounts, bearer session
// tokens and auth state-change notifications.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoSession          = errors.New("no active session")
)

const minPasswordLength = 6

// Event is an auth state change.
type Event string

const (
	SignedIn  Event = "SIGNED_IN"
	SignedOut Event = "SIGNED_OUT"
)

// Listener receives auth state changes. It is called synchronously by the
// operation that caused the change, so it must not block.
type Listener func(event Event, session *Session)

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an issued bearer token and the user it belongs to.
type Session struct {
	Token     string    `json:"-"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Config struct {
	Secret string
	TTL    time.Duration
}

// Service issues and verifies sessions. Only HMAC digests of tokens are
// persisted.
type Service struct {
	db     *gorm.DB
	cfg    Config
	logger *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

func NewService(db *gorm.DB, cfg Config, log *logger.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 14 * 24 * time.Hour
	}
	return &Service{
		db:        db,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	v := validation.Violations{}
	validation.Required("email", email, "Email is required", v)
	if email != "" {
		validation.Email("email", email, v)
	}
	if len(password) < minPasswordLength {
		v["password"] = fmt.Sprintf("Password must be at least %d characters", minPasswordLength)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&database.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := database.User{Email: email, PasswordHash: string(hash)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// A concurrent sign-up won the unique email index after our count.
		if database.IsDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID)
	return s.issue(ctx, user)
}

// SignIn verifies credentials and issues a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user database.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

// GetSession resolves a bearer token. Unknown or expired tokens yield
// ErrNoSession.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	var row database.AuthSession
	if err := s.db.WithContext(ctx).Where("token_hash = ?", s.hash(token)).First(&row).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if !row.ExpiresAt.After(s.now()) {
		if err := s.db.WithContext(ctx).Delete(&row).Error; err != nil {
			s.logger.Warn("Failed to delete expired session", "session_id", row.ID, "error", err)
		}
		return nil, ErrNoSession
	}

	var user database.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", row.UserID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}

	return &Session{
		Token:     token,
		User:      User{ID: user.ID, Email: user.Email},
		ExpiresAt: row.ExpiresAt,
	}, nil
}

// SignOut revokes the token. Signing out an unknown token is a no-op and
// emits no event.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sess, err := s.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}

	if err := s.db.WithContext(ctx).Where("token_hash = ?", s.hash(token)).Delete(&database.AuthSession{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.Info("User signed out", "user_id", sess.User.ID)
	s.notify(SignedOut, sess)
	return nil
}

// Subscribe registers l for state changes and returns its unsubscribe func.
func (s *Service) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Service) issue(ctx context.Context, user database.User) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	row := database.AuthSession{
		UserID:    user.ID,
		TokenHash: s.hash(token),
		ExpiresAt: s.now().Add(s.cfg.TTL),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess := &Session{
		Token:     token,
		User:      User{ID: user.ID, Email: user.Email},
		ExpiresAt: row.ExpiresAt,
	}
	s.notify(SignedIn, sess)
	return sess, nil
}

func (s *Service) notify(event Event, sess *Session) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(event, sess)
	}
}

func (s *Service) hash(token string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.Secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
