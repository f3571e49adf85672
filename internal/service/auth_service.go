package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/storage"
)

// defaultSkinID is the starter skin every new account is created with.
const defaultSkinID = 1

// AuthService handles registration, login and password changes.
type AuthService struct {
	store    storage.Store
	notifier notify.Notifier
	jwt      *JWTManager
}

func NewAuthService(store storage.Store, notifier notify.Notifier, jwt *JWTManager) *AuthService {
	return &AuthService{store: store, notifier: notifier, jwt: jwt}
}

// Register creates an account at level 1 with zero balances. When a valid
// referrer id is supplied the referrer is linked and notified.
func (s *AuthService) Register(ctx context.Context, login, password string, referrerID *int64) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Login:        login,
		PasswordHash: string(hash),
		Level:        1,
		SkinID:       defaultSkinID,
		Role:         domain.RoleUser,
	}

	var referrer *domain.User
	if referrerID != nil {
		referrer, err = s.store.GetUser(ctx, *referrerID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if referrer != nil {
			user.ReferrerID = &referrer.ID
		}
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrLoginTaken) {
			return nil, ErrLoginInUse
		}
		return nil, err
	}

	if referrer != nil {
		s.notifier.Notify(referrer.ID, notify.EventReferralUpdate, map[string]any{"newReferral": user.Login})
	}
	return user, nil
}

// Login verifies the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, login, password string) (string, *domain.User, error) {
	user, err := s.store.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if user.IsBlocked {
		return "", nil, ErrUserBlocked
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// ChangePassword swaps the user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	return s.store.Atomic(ctx, func(st storage.Store) error {
		user, err := st.GetUserForUpdate(ctx, userID)
		if err != nil {
			return mapUserErr(err)
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
			return ErrWrongPassword
		}
		if current == next {
			return ErrSamePassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
		return st.UpdateUser(ctx, user)
	})
}

// GetUser returns the account for profile rendering.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return user, nil
}
