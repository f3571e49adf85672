package service

import (
	"context"
	"errors"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/storage"
)

// AdminService backs the moderation panel: transaction and user search,
// account edits and aggregate stats.
type AdminService struct {
	store    storage.Store
	notifier notify.Notifier
}

func NewAdminService(store storage.Store, notifier notify.Notifier) *AdminService {
	return &AdminService{store: store, notifier: notifier}
}

func (s *AdminService) SearchTransactions(ctx context.Context, f storage.TransactionFilter) ([]domain.Transaction, error) {
	return s.store.SearchTransactions(ctx, f)
}

func (s *AdminService) SearchUsers(ctx context.Context, f storage.UserFilter) ([]domain.User, error) {
	return s.store.ListUsers(ctx, f)
}

// UpdateUserInput carries the editable account fields; nil means keep.
type UpdateUserInput struct {
	Login     *string
	Role      *domain.Role
	IsBlocked *bool
}

// UpdateUser applies the edits and pushes a user_update event so an open
// session sees the change immediately.
func (s *AdminService) UpdateUser(ctx context.Context, userID int64, in UpdateUserInput) (*domain.User, error) {
	var user *domain.User
	err := s.store.Atomic(ctx, func(st storage.Store) error {
		var err error
		user, err = st.GetUserForUpdate(ctx, userID)
		if err != nil {
			return mapUserErr(err)
		}
		if in.Login != nil {
			user.Login = *in.Login
		}
		if in.Role != nil {
			user.Role = *in.Role
		}
		if in.IsBlocked != nil {
			user.IsBlocked = *in.IsBlocked
		}
		if err := st.UpdateUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrLoginTaken) {
				return ErrLoginInUse
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(user.ID, notify.EventUserUpdate, map[string]any{
		"login": user.Login,
		"role":  user.Role,
	})
	return user, nil
}

func (s *AdminService) Stats(ctx context.Context) (*storage.AdminStats, error) {
	return s.store.AdminStats(ctx)
}
