package authpw

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"memoria/api/internal/store"
)

type fakeEditorStore struct {
	editors map[string]store.Editor
}

func (f *fakeEditorStore) GetEditorByEmail(_ context.Context, email string) (store.Editor, error) {
	editor, ok := f.editors[email]
	if !ok {
		return store.Editor{}, sql.ErrNoRows
	}
	return editor, nil
}

func TestSignIn(t *testing.T) {
	hash, err := HashPassword("correto-cavalo-bateria")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	svc := NewService(&fakeEditorStore{editors: map[string]store.Editor{
		"editora@memoria.dev": {ID: "edi_1", Email: "editora@memoria.dev", PasswordHash: hash},
	}})
	ctx := context.Background()

	editor, err := svc.SignIn(ctx, "editora@memoria.dev", "correto-cavalo-bateria")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if editor.ID != "edi_1" {
		t.Errorf("editor = %+v", editor)
	}

	if _, err := svc.SignIn(ctx, "editora@memoria.dev", "senha-errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.SignIn(ctx, "ninguem@memoria.dev", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}
