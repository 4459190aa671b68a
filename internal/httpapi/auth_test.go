package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"invoicebook/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      domain.RoleAdmin,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, store)
	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.User.Username != "admin" || resp.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected user summary %+v", resp.User)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestCreateUserStoresPasswordHash(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{}}
	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, store)

	user, err := manager.CreateUser(context.Background(), " Clerk01 ", "pass1234", "")
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if user.Username != "clerk01" || user.Role != domain.RoleUser {
		t.Fatalf("unexpected user %+v", user)
	}

	saved := store.users["clerk01"]
	if saved.Password == "pass1234" || !strings.HasPrefix(saved.Password, "$2") {
		t.Fatalf("expected bcrypt hash, got %s", saved.Password)
	}

	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "CLERK01", Password: "pass1234"}); err != nil {
		t.Fatalf("login with new user failed: %v", err)
	}
	if _, err := manager.CreateUser(context.Background(), "clerk01", "pass1234", domain.RoleUser); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, &userStoreStub{})

	if _, err := manager.CreateUser(context.Background(), "someone", "pass1234", "cashier"); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
	if _, err := manager.CreateUser(context.Background(), "abc", "pass1234", domain.RoleUser); err == nil {
		t.Fatalf("expected short username to fail")
	}
	if _, err := manager.CreateUser(context.Background(), "someone", "123", domain.RoleUser); err == nil {
		t.Fatalf("expected short password to fail")
	}
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{
		"retired": {Username: "retired", Password: "pass1234", Role: domain.RoleUser, Active: false},
	}}
	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, store)

	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "retired", Password: "pass1234"}); err == nil {
		t.Fatalf("expected inactive account to be rejected")
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, nil)
	other := NewAuthManager(context.Background(), "another-secret", time.Hour, nil)

	token, err := other.sign("admin", domain.RoleAdmin, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}

	expired, err := manager.sign("admin", domain.RoleAdmin, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.RegisteredClaims{Subject: "admin"})
	raw, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := manager.ParseToken(raw); err == nil {
		t.Fatalf("expected alg=none token to be rejected")
	}
}
