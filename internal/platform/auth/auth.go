// Package auth is the authenticator collaborator: username/password login
// issuing HMAC-signed bearer tokens, token verification, and the echo
// middleware that attaches the resulting Principal to the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/preepi/recordings/internal/platform/apperror"
)

// Principal is the authenticated caller. CanAccessSensitive gates retrieval
// of video and report records.
type Principal struct {
	UserID             int64
	Username           string
	CanAccessSensitive bool
}

// User is a row in the users table.
type User struct {
	ID                 int64
	Username           string
	HashedPassword     string
	CanAccessSensitive bool
}

// UserStore is the persistence boundary for users.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User) error
}

// ErrUserNotFound is returned by UserStore implementations when no row
// matches.
var ErrUserNotFound = errors.New("user not found")

type Claims struct {
	jwt.RegisteredClaims
	UserID             int64 `json:"user_id"`
	CanAccessSensitive bool  `json:"can_access_sensitive"`
}

// Service authenticates credentials and authorizes bearer tokens.
type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
}

func NewService(users UserStore, secret []byte, ttl time.Duration) *Service {
	return &Service{users: users, secret: secret, ttl: ttl}
}

// Authenticate verifies a username/password pair and issues a signed token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", apperror.Unauthorized("incorrect username or password")
		}
		return "", apperror.Internal("user lookup failed", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return "", apperror.Unauthorized("incorrect username or password")
	}

	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:             user.ID,
		CanAccessSensitive: user.CanAccessSensitive,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperror.Internal("token signing failed", err)
	}
	return token, nil
}

// Authorize validates a bearer token and returns the Principal it carries.
// The user row is re-read so revoked users and capability changes take effect
// without waiting for token expiry.
func (s *Service) Authorize(ctx context.Context, tokenStr string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.Unauthorized("could not validate credentials")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperror.Unauthorized("could not validate credentials")
		}
		return nil, apperror.Internal("user lookup failed", err)
	}

	return &Principal{
		UserID:             user.ID,
		Username:           user.Username,
		CanAccessSensitive: user.CanAccessSensitive,
	}, nil
}

// CreateUser hashes the password and stores a new user.
func (s *Service) CreateUser(ctx context.Context, username, password string, canAccessSensitive bool) (*User, error) {
	if username == "" {
		return nil, apperror.InvalidArgument("username is required")
	}
	if password == "" {
		return nil, apperror.InvalidArgument("password is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal("password hashing failed", err)
	}

	user := &User{
		Username:           username,
		HashedPassword:     string(hashed),
		CanAccessSensitive: canAccessSensitive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.Internal("user creation failed", err)
	}
	return user, nil
}
