package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp/totp"

	cryptoutil "staffledger/internal/platform/crypto"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	claims := Claims{UserID: "u1", Role: RoleEmployee, EmployeeID: "e1"}
	token, err := GenerateToken("test-secret", claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	parsed, err := ParseToken("test-secret", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.UserID != "u1" || parsed.Role != RoleEmployee || parsed.EmployeeID != "e1" {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	token, err := GenerateToken("s", Claims{UserID: "u1", Role: "root"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("s", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

type memoryStore struct {
	users map[string]User
}

func (m *memoryStore) FindActiveUserByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, pgx.ErrNoRows
}

func (m *memoryStore) FindUser(ctx context.Context, userID string) (User, error) {
	u, ok := m.users[userID]
	if !ok {
		return User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memoryStore) UpdateLastLogin(ctx context.Context, userID string) error { return nil }

func (m *memoryStore) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	u := m.users[userID]
	u.MFASecretEnc = secretEnc
	u.MFAEnabled = false
	m.users[userID] = u
	return nil
}

func (m *memoryStore) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	u := m.users[userID]
	u.MFAEnabled = enabled
	m.users[userID] = u
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryStore) {
	t.Helper()
	hash, err := HashPassword("ChangeMe123!")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	store := &memoryStore{users: map[string]User{
		"u1": {ID: "u1", Email: "asha@example.com", Role: RoleEmployee, EmployeeID: "e1", PasswordHash: hash},
	}}
	sealer, err := cryptoutil.New("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("crypto error: %v", err)
	}
	return NewService(store, sealer, "test-secret", time.Hour), store
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.Login(context.Background(), " Asha@Example.com ", "ChangeMe123!", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := ParseToken("test-secret", result.Token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.EmployeeID != "e1" {
		t.Fatalf("expected employee id in token, got %+v", claims)
	}

	if _, err := svc.Login(context.Background(), "asha@example.com", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "x", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestMFASetupEnableAndVerify(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	setup, err := svc.SetupMFA(ctx, "u1", "asha@example.com")
	if err != nil {
		t.Fatalf("setup error: %v", err)
	}
	if string(store.users["u1"].MFASecretEnc) == setup.Secret {
		t.Fatal("expected secret to be stored encrypted")
	}
	if err := svc.VerifySecondFactor(ctx, "u1", ""); err != nil {
		t.Fatalf("factor not enabled yet, expected pass, got %v", err)
	}

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("code error: %v", err)
	}
	if err := svc.EnableMFA(ctx, "u1", code); err != nil {
		t.Fatalf("enable error: %v", err)
	}

	if err := svc.VerifySecondFactor(ctx, "u1", ""); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected ErrMFARequired, got %v", err)
	}
	if err := svc.VerifySecondFactor(ctx, "u1", "000000x"); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected ErrMFAInvalid, got %v", err)
	}
	if err := svc.VerifySecondFactor(ctx, "u1", code); err != nil {
		t.Fatalf("expected valid code to pass, got %v", err)
	}

	if _, err := svc.Login(ctx, "asha@example.com", "ChangeMe123!", ""); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected login to require mfa, got %v", err)
	}
	if _, err := svc.Login(ctx, "asha@example.com", "ChangeMe123!", code); err != nil {
		t.Fatalf("expected login with code to pass, got %v", err)
	}
}

func TestSetupMFARequiresEncryptionKey(t *testing.T) {
	store := &memoryStore{users: map[string]User{"u1": {ID: "u1"}}}
	sealer, _ := cryptoutil.New("")
	svc := NewService(store, sealer, "s", time.Hour)
	if _, err := svc.SetupMFA(context.Background(), "u1", "x"); !errors.Is(err, ErrMFAUnavailable) {
		t.Fatalf("expected ErrMFAUnavailable, got %v", err)
	}
}

func TestParseTokenRejectsExpiredAndForeignIssuer(t *testing.T) {
	expired, err := GenerateToken("s", Claims{UserID: "u1", Role: RoleAdmin}, -time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("s", expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		Role:   RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("s"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := ParseToken("s", signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}
