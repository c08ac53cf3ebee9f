package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	dom "taskflow/internal/domain"
)

// memUserRepo is an in-memory UserRepo for service tests.
type memUserRepo struct {
	users  map[string]dom.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]dom.User{}}
}

func (m *memUserRepo) GetByUsername(ctx context.Context, username string) (dom.User, error) {
	u, ok := m.users[username]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memUserRepo) Create(ctx context.Context, username, passwordHash string) (dom.User, error) {
	if _, exists := m.users[username]; exists {
		return dom.User{}, &pgconn.PgError{Code: "23505"}
	}
	m.nextID++
	u := dom.User{
		ID:           m.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
	}
	m.users[username] = u
	return u, nil
}

func TestRegisterAndValidate(t *testing.T) {
	svc := NewUserService(newMemUserRepo())

	created, err := svc.Register(context.Background(), " alice ", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if created.Username != "alice" {
		t.Errorf("username = %q, want trimmed", created.Username)
	}
	if created.PasswordHash == "pw" || created.PasswordHash == "" {
		t.Error("password stored unhashed")
	}

	got, err := svc.ValidateCredentials(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("ValidateCredentials: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("resolved user %d, want %d", got.ID, created.ID)
	}

	if _, err := svc.ValidateCredentials(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.ValidateCredentials(context.Background(), "nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegister_UsernameAlreadyTaken(t *testing.T) {
	svc := NewUserService(newMemUserRepo())
	if _, err := svc.Register(context.Background(), "alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(context.Background(), "alice", "other"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestRegister_EmptyFieldsRejected(t *testing.T) {
	svc := NewUserService(newMemUserRepo())
	for _, c := range []struct{ username, password string }{
		{"", "pw"},
		{"   ", "pw"},
		{"alice", ""},
	} {
		if _, err := svc.Register(context.Background(), c.username, c.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Register(%q, %q) err = %v, want ErrInvalidCredentials", c.username, c.password, err)
		}
	}
}
