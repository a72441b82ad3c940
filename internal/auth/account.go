package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"freshmart/internal/model"
	"freshmart/internal/notify"
	"freshmart/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// KeyUser is the persisted key of the signed-in user.
const KeyUser = "freshmart_user"

// Account is the signed-in user of one session.
type Account interface {
	// User returns the signed-in user, if any.
	User() (model.User, bool)

	// SignIn records a fresh user for phone, replacing any previous one.
	SignIn(ctx context.Context, phone string) model.User

	// Logout forgets the user.
	Logout(ctx context.Context)

	// UpdateProfile sets the display name. It fails when signed out.
	UpdateProfile(ctx context.Context, name string) (model.User, error)
}

type account struct {
	kv       storage.Store
	notifier notify.Notifier
	logger   zerolog.Logger
	user     *model.User
}

// OpenAccount reads the persisted user from kv.
func OpenAccount(ctx context.Context, kv storage.Store, notifier notify.Notifier, logger zerolog.Logger) (Account, error) {
	a := &account{
		kv:       kv,
		notifier: notifier,
		logger:   logger.With().Str("component", "account").Logger(),
	}

	var u model.User
	found, err := storage.GetJSON(ctx, kv, KeyUser, &u)
	switch {
	case errors.Is(err, storage.ErrCorrupt):
		a.logger.Warn().Err(err).Msg("discarding unreadable user")
	case err != nil:
		return nil, fmt.Errorf("failed to load user: %w", err)
	case found && (u.ID == "" || u.Phone == ""):
		a.logger.Warn().Msg("discarding invalid user")
	case found:
		a.user = &u
	}

	return a, nil
}

func (a *account) User() (model.User, bool) {
	if a.user == nil {
		return model.User{}, false
	}
	return *a.user, true
}

func (a *account) SignIn(ctx context.Context, phone string) model.User {
	u := model.User{
		ID:    "user_" + uuid.NewString(),
		Phone: NormalisePhone(phone),
	}
	a.user = &u
	a.persist(ctx)

	a.logger.Info().Str("user_id", u.ID).Msg("signed in")
	notify.Info(a.notifier, "Welcome!", "You have successfully signed in.")
	return u
}

func (a *account) Logout(ctx context.Context) {
	if a.user == nil {
		return
	}
	a.logger.Info().Str("user_id", a.user.ID).Msg("signed out")
	a.user = nil
	if err := a.kv.Delete(ctx, KeyUser); err != nil {
		a.logger.Error().Err(err).Msg("failed to delete user")
	}
}

func (a *account) UpdateProfile(ctx context.Context, name string) (model.User, error) {
	if a.user == nil {
		return model.User{}, model.ErrUnauthenticated
	}
	a.user.Name = strings.TrimSpace(name)
	a.persist(ctx)
	return *a.user, nil
}

func (a *account) persist(ctx context.Context) {
	if err := storage.PutJSON(ctx, a.kv, KeyUser, a.user); err != nil {
		a.logger.Error().Err(err).Msg("failed to persist user")
	}
}
