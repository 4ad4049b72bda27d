package devserver_test

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/classloop/classloop/internal/devserver"
)

func newRegistry() *devserver.UserRegistry {
	return devserver.NewUserRegistry(bcrypt.MinCost)
}

func TestCreateAndAuthenticate(t *testing.T) {
	reg := newRegistry()

	user, err := reg.Create("ada", "Ada@Example.com", "hunter2", "STUDENT")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == 0 || user.Email != "ada@example.com" {
		t.Errorf("unexpected user %+v", user)
	}

	got, err := reg.Authenticate("  ADA@example.com ", "hunter2")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, got.ID)
	}
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	reg := newRegistry()
	reg.Create("ada", "ada@example.com", "hunter2", "STUDENT")

	if _, err := reg.Authenticate("ada@example.com", "wrong"); !errors.Is(err, devserver.ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got %v", err)
	}
	if _, err := reg.Authenticate("nobody@example.com", "hunter2"); !errors.Is(err, devserver.ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials for unknown email, got %v", err)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	reg := newRegistry()
	reg.Create("ada", "ada@example.com", "hunter2", "STUDENT")

	if _, err := reg.Create("other", "ADA@example.com", "pw", "TEACHER"); !errors.Is(err, devserver.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateUsername(t *testing.T) {
	reg := newRegistry()
	user, _ := reg.Create("ada", "ada@example.com", "hunter2", "STUDENT")

	updated, err := reg.UpdateUsername(user.ID, "countess")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "countess" {
		t.Errorf("expected countess, got %q", updated.Username)
	}
	if got := reg.Get(user.ID); got.Username != "countess" {
		t.Errorf("expected persisted rename, got %q", got.Username)
	}

	if _, err := reg.UpdateUsername(999, "x"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestGetUnknownUserIsNil(t *testing.T) {
	if got := newRegistry().Get(42); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}
