package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

var (
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrEmailTaken         = errors.New("el email ya está registrado")
)

type Service struct {
	secret   string
	expHours int
	users    storage.UserRepository
}

func NewService(secret string, expHours int, users storage.UserRepository) *Service {
	if expHours <= 0 {
		expHours = 24
	}
	return &Service{secret: secret, expHours: expHours, users: users}
}

// Login verifica las credenciales y emite un JWT con sub y role.
func (s *Service) Login(ctx context.Context, email, password string) (string, model.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", model.User{}, ErrInvalidCredentials
		}
		return "", model.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", model.User{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", model.User{}, err
	}
	return token, user, nil
}

// Register da de alta un usuario con la contraseña hasheada con bcrypt.
func (s *Service) Register(ctx context.Context, email, password, role string) (model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, errors.New("email inválido")
	}
	if len(password) < 8 {
		return model.User{}, errors.New("la contraseña necesita al menos 8 caracteres")
	}
	if role == "" {
		role = "user"
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return model.User{}, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("auth: hash: %w", err)
	}

	return s.users.Create(ctx, model.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
}

func (s *Service) issueToken(user model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Duration(s.expHours) * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("auth: firmar token: %w", err)
	}
	return signed, nil
}
