package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/go-homedir"
)

// TokenStore keeps the backend login token in a file on the local machine.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) (*TokenStore, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand token path %q: %w", path, err)
	}
	return &TokenStore{path: expanded}, nil
}

// Token returns the stored token, or "" when nobody has logged in.
func (s *TokenStore) Token() (string, error) {
	body, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

func (s *TokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(strings.TrimSpace(token)), 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// ExpiresAt reads the exp claim of the stored token. The signature is not
// checked; the backend does that. ok is false when there is no token or no exp.
func (s *TokenStore) ExpiresAt() (expiresAt time.Time, ok bool, err error) {
	token, err := s.Token()
	if err != nil || token == "" {
		return time.Time{}, false, err
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("stored token is not a JWT: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stored token has a bad exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, false, nil
	}
	return exp.Time, true, nil
}
