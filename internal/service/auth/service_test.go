package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

type fakeUserRepo struct {
	byEmail map[string]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user model.User) (model.User, error) {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	r.byEmail[strings.ToLower(user.Email)] = user
	return user, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (model.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return model.User{}, storage.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	user, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return model.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) List(context.Context) ([]model.User, error) {
	var out []model.User
	for _, user := range r.byEmail {
		out = append(out, user)
	}
	return out, nil
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService("secreto-de-prueba", 1, newFakeUserRepo())

	user, err := svc.Register(context.Background(), "Ana@Example.com", "contraseña123", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("el email debería normalizarse: %q", user.Email)
	}
	if user.Role != "user" {
		t.Errorf("role = %q", user.Role)
	}
	if user.PasswordHash == "contraseña123" {
		t.Fatal("la contraseña no puede guardarse en claro")
	}

	token, logged, err := svc.Login(context.Background(), "ana@example.com", "contraseña123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("usuario logueado = %q", logged.ID)
	}

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return []byte("secreto-de-prueba"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("el token no valida: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != user.ID {
		t.Errorf("sub = %v", claims["sub"])
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := NewService("s", 1, newFakeUserRepo())
	if _, err := svc.Register(context.Background(), "ana@example.com", "contraseña123", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "ana@example.com", "otra-clave"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nadie@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("un usuario inexistente devuelve el mismo error: %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := NewService("s", 1, newFakeUserRepo())
	if _, err := svc.Register(context.Background(), "ana@example.com", "contraseña123", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "ANA@example.com", "contraseña456", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("error = %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := NewService("s", 1, newFakeUserRepo())
	if _, err := svc.Register(context.Background(), "sin-arroba", "contraseña123", ""); err == nil {
		t.Error("email inválido debería rechazarse")
	}
	if _, err := svc.Register(context.Background(), "ana@example.com", "corta", ""); err == nil {
		t.Error("contraseña corta debería rechazarse")
	}
}
