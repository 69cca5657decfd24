package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"invest-ledger/internal/storages"
	"invest-ledger/pkg"
)

// Границы длины пароля; bcrypt не принимает больше 72 байт
const (
	minPasswordLength = 6
	maxPasswordLength = 72
)

// RegisterInput данные для регистрации
type RegisterInput struct {
	Username     string
	DisplayName  string
	Phone        string
	Password     string
	ReferralCode string
}

// RegisterUser регистрирует нового пользователя
func (s *LedgerService) RegisterUser(ctx context.Context, in RegisterInput) (*storages.User, error) {
	username := pkg.NormalizeUsername(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		s.logger.Errorf("Failed to hash password: %v", err)
		return nil, err
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}

	now := s.now()
	user := &storages.User{
		ID:              uuid.NewString(),
		Username:        username,
		DisplayName:     displayName,
		Phone:           strings.TrimSpace(in.Phone),
		PasswordHash:    hashedPassword,
		Role:            storages.RoleUser,
		Balance:         decimal.Zero,
		ProfitBalance:   decimal.Zero,
		InvestedAmount:  decimal.Zero,
		ReferredUserIDs: []string{},
		Investments:     []storages.Investment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.storage.WithTransaction(ctx, func(ctx context.Context, repo storages.Repositories) error {
		if _, err := repo.GetUserByUsername(ctx, username); err == nil {
			return ErrDuplicateIdentity
		} else if !errors.Is(err, storages.ErrNotFound) {
			return fmt.Errorf("failed to check username: %w", err)
		}

		var referrer *storages.User
		if code := strings.TrimSpace(in.ReferralCode); code != "" {
			referrer, err = repo.GetUserByReferralCode(ctx, code)
			if err != nil {
				return notFound(err, "referral code")
			}
			user.ReferredBy = referrer.ID
		}

		referralCode, err := uniqueReferralCode(ctx, repo)
		if err != nil {
			return err
		}
		user.ReferralCode = referralCode

		if err := repo.CreateUser(ctx, user); err != nil {
			if errors.Is(err, storages.ErrDuplicate) {
				return ErrDuplicateIdentity
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if referrer != nil {
			referrer.ReferredUserIDs = append(referrer.ReferredUserIDs, user.ID)
			referrer.UpdatedAt = now
			if err := repo.UpdateUser(ctx, referrer); err != nil {
				return fmt.Errorf("failed to update referrer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("User registered successfully: %s", username)
	return user, nil
}

// AuthenticateUser аутентифицирует пользователя
func (s *LedgerService) AuthenticateUser(ctx context.Context, username, password string) (*storages.User, error) {
	user, err := s.storage.GetUserByUsername(ctx, pkg.NormalizeUsername(username))
	if err != nil {
		if !errors.Is(err, storages.ErrNotFound) {
			s.logger.Errorf("Failed to load user %s: %v", username, err)
		}
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warnf("Failed authentication attempt for user: %s", username)
		return nil, ErrInvalidCredentials
	}

	s.logger.Infof("User authenticated successfully: %s", user.Username)
	return user, nil
}

// EnsureAdmin создает администратора, если его еще нет.
// Пустой пароль отключает создание.
func (s *LedgerService) EnsureAdmin(ctx context.Context, username, password string) error {
	username = pkg.NormalizeUsername(username)
	if username == "" || password == "" {
		s.logger.Warn("Admin credentials are not configured, skipping admin bootstrap")
		return nil
	}

	existing, err := s.storage.GetUserByUsername(ctx, username)
	if err == nil {
		if existing.Role != storages.RoleAdmin {
			return fmt.Errorf("user %s exists and is not an admin", username)
		}
		return nil
	}
	if !errors.Is(err, storages.ErrNotFound) {
		return fmt.Errorf("failed to check admin: %w", err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return err
	}

	referralCode, err := uniqueReferralCode(ctx, s.storage)
	if err != nil {
		return err
	}

	now := s.now()
	admin := &storages.User{
		ID:              uuid.NewString(),
		Username:        username,
		DisplayName:     username,
		PasswordHash:    hashedPassword,
		Role:            storages.RoleAdmin,
		Balance:         decimal.Zero,
		ProfitBalance:   decimal.Zero,
		InvestedAmount:  decimal.Zero,
		ReferralCode:    referralCode,
		ReferredUserIDs: []string{},
		Investments:     []storages.Investment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.storage.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, storages.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Infof("Admin user created: %s", username)
	return nil
}

// GetUser возвращает пользователя
func (s *LedgerService) GetUser(ctx context.Context, userID string) (*storages.User, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// ListUsers возвращает всех пользователей
func (s *LedgerService) ListUsers(ctx context.Context) ([]storages.User, error) {
	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordLength)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordLength)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// referralCodeAttempts сколько раз генерируется код при совпадении с существующим
const referralCodeAttempts = 5

var newReferralCode = func() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// uniqueReferralCode генерирует код, которого еще нет у других пользователей
func uniqueReferralCode(ctx context.Context, users storages.Users) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code := newReferralCode()
		_, err := users.GetUserByReferralCode(ctx, code)
		if errors.Is(err, storages.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
	}
	return "", fmt.Errorf("failed to generate unique referral code after %d attempts", referralCodeAttempts)
}
