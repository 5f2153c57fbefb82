// Package authpw verifies editor credentials against bcrypt hashes.
// Accounts are provisioned out of band; there is no sign-up flow.
package authpw

import (
	"context"
	"errors"

	"memoria/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both unknown emails and wrong passwords
// so responses never reveal which one it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

// EditorStore is the slice of the store this service needs.
type EditorStore interface {
	GetEditorByEmail(ctx context.Context, email string) (store.Editor, error)
}

type Service struct {
	store EditorStore
}

func NewService(store EditorStore) *Service {
	return &Service{store: store}
}

// SignIn checks the password and returns the editor on success.
func (s *Service) SignIn(ctx context.Context, email, password string) (store.Editor, error) {
	editor, err := s.store.GetEditorByEmail(ctx, email)
	if err != nil {
		return store.Editor{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(editor.PasswordHash), []byte(password)) != nil {
		return store.Editor{}, ErrInvalidCredentials
	}
	return editor, nil
}

// HashPassword produces the bcrypt hash stored for an editor.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
