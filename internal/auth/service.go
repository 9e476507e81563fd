package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Store interface {
	Create(ctx context.Context, username, email, passwordHash string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
}

type Service struct {
	store Store
	codec *Codec
}

func NewService(store Store, codec *Codec) *Service {
	return &Service{store: store, codec: codec}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	email = strings.TrimSpace(strings.ToLower(email))

	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	user, err := s.store.Create(ctx, username, email, hash)
	if err != nil {
		return User{}, err
	}

	return user, nil
}

// Login verifies credentials and mints an access token. Unknown usernames,
// wrong passwords and inactive accounts all collapse to ErrInvalidCredentials so
// responses do not leak which identities exist.
func (s *Service) Login(ctx context.Context, username, password string) (Tokens, error) {
	username = strings.TrimSpace(strings.ToLower(username))

	if username == "" || password == "" {
		return Tokens{}, ErrInvalidCredentials
	}

	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tokens{}, ErrInvalidCredentials
		}
		return Tokens{}, err
	}

	if !user.IsActive {
		return Tokens{}, ErrInvalidCredentials
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return Tokens{}, ErrInvalidCredentials
	}

	token, err := s.codec.Mint(user.ID, 0)
	if err != nil {
		return Tokens{}, fmt.Errorf("mint access token: %w", err)
	}

	return Tokens{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.codec.TTL().Seconds()),
	}, nil
}
