package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// OwnerSubject is the subject of every issued token; the system has a single user
const OwnerSubject = "owner"

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService checks the owner password and issues API tokens
type AuthService struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	clock        Clock
}

// NewAuthService creates a new auth service
func NewAuthService(passwordHash, secret string, ttl time.Duration, clock Clock) *AuthService {
	return &AuthService{passwordHash: []byte(passwordHash), secret: []byte(secret), ttl: ttl, clock: clock}
}

// Login validates the password and returns a signed token with its expiry
func (s *AuthService) Login(password string) (string, time.Time, error) {
	if len(s.passwordHash) == 0 {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := s.clock.Now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": OwnerSubject,
		"iat": now.Unix(),
		"exp": expires.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// HashPassword returns a bcrypt hash suitable for OWNER_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
