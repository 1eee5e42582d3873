package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Sealer encrypts TOTP secrets at rest.
type Sealer interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type Service struct {
	store  StoreAPI
	crypto Sealer
	secret string
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewService(store StoreAPI, crypto Sealer, secret string, ttl time.Duration) *Service {
	return &Service{store: store, crypto: crypto, secret: secret, ttl: ttl, issuer: "StaffLedger", now: time.Now}
}

func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (LoginResult, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if user.MFAEnabled {
		if strings.TrimSpace(mfaCode) == "" {
			return LoginResult{}, ErrMFARequired
		}
		if err := s.validateCode(user, mfaCode); err != nil {
			return LoginResult{}, err
		}
	}

	token, err := GenerateToken(s.secret, Claims{UserID: user.ID, Role: user.Role, EmployeeID: user.EmployeeID}, s.ttl)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}
	return LoginResult{Token: token, User: user}, nil
}

func (s *Service) User(ctx context.Context, userID string) (User, error) {
	user, err := s.store.FindUser(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return user, err
}

// SetupMFA generates and stores a new TOTP secret. The factor stays disabled
// until EnableMFA confirms a code from it.
func (s *Service) SetupMFA(ctx context.Context, userID, accountName string) (MFASetup, error) {
	if s.crypto == nil || !s.crypto.Configured() {
		return MFASetup{}, ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, err
	}
	encrypted, err := s.crypto.EncryptString(key.Secret())
	if err != nil {
		return MFASetup{}, err
	}
	if err := s.store.UpdateMFASecret(ctx, userID, encrypted); err != nil {
		return MFASetup{}, err
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, userID, code string) error {
	if s.crypto == nil || !s.crypto.Configured() {
		return ErrMFAUnavailable
	}
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.validateCode(user, code); err != nil {
		return err
	}
	return s.store.SetMFAEnabled(ctx, userID, true)
}

// VerifySecondFactor checks code against the user's enabled TOTP factor.
// Users without an enabled factor pass.
func (s *Service) VerifySecondFactor(ctx context.Context, userID, code string) error {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return nil
	}
	if strings.TrimSpace(code) == "" {
		return ErrMFARequired
	}
	return s.validateCode(user, code)
}

func (s *Service) validateCode(user User, code string) error {
	if len(user.MFASecretEnc) == 0 {
		return ErrMFANotSetup
	}
	secret := string(user.MFASecretEnc)
	if s.crypto != nil && s.crypto.Configured() {
		decoded, err := s.crypto.DecryptString(user.MFASecretEnc)
		if err != nil {
			return ErrMFAInvalid
		}
		secret = decoded
	}
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		return ErrMFAInvalid
	}
	return nil
}
