package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fefe/internal/domain"
	"fefe/internal/repos"
	"fefe/internal/validate"
)

var ErrBadCreds = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

type AuthService struct {
	Users *repos.UserRepo
}

func (s *AuthService) Register(name, email, password string) (*domain.User, error) {
	name, nameOK := validate.Name(name, 100)
	if !nameOK {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	email, emailOK := validate.Email(email)
	if !emailOK {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrValidation)
	}
	if !validate.Password(password) {
		return nil, fmt.Errorf("%w: password must be 8+ chars with upper, lower and digit", domain.ErrValidation)
	}
	if _, err := s.Users.ByEmail(email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:    uuid.NewString(),
		Email: email,
		Name:  name,
		Hash:  string(hash),
		Role:  "USER",
	}
	if err := s.Users.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}
