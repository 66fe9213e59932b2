package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/roomchat-server/internal/store/migrations"
	"github.com/vovakirdan/roomchat-server/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		return migrations.Up(db, migrations.DialectSQLite, nil)
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_RejectsInvalidUsername(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ab", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}

	// Should be validated after trimming whitespace.
	if _, err := svc.Register(ctx, " ab ", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
}

func TestRegister_RejectsInvalidPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "abc", "12345"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_TrimsUsernameAndCreatesUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, " alice ", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	// Should collide because the stored username is trimmed.
	if _, err := svc.Register(ctx, "alice", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Login(ctx, "bob", "password123")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Username != "bob" || claims.UserID == 0 {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.Login(ctx, "bob", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestValidateToken_RejectsForeignAudience(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("s"), Issuer: "a", Audience: "web", TTL: time.Hour}
	token, err := GenerateToken(cfg, 1, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := *cfg
	other.Audience = "mobile"
	if _, err := ValidateToken(&other, token); err == nil {
		t.Fatalf("expected audience mismatch error")
	}

	other = *cfg
	other.Secret = []byte("different")
	if _, err := ValidateToken(&other, token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestCallerContext(t *testing.T) {
	ctx := context.Background()
	if id := CallerID(ctx); id != nil {
		t.Fatalf("expected nil caller, got %d", *id)
	}

	ctx = WithCaller(ctx, &Claims{UserID: 42, Username: "alice"})
	id := CallerID(ctx)
	if id == nil || *id != 42 {
		t.Fatalf("expected caller 42, got %v", id)
	}
	claims, ok := CallerFromContext(ctx)
	if !ok || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
