package vcs

import (
	"errors"
	"log/slog"
)

// UserID resolves the identity used for commits: the override, then the
// backend's configuration, then a guess from the environment. Persisting a
// guess is best effort: backends that cannot store one, or have no root to
// store it in yet, still get the guess.
func (a *Adapter) UserID() (string, error) {
	if a.userID != "" {
		return a.userID, nil
	}
	id, err := a.backend.UserID()
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id, err = guessUserID()
	if err != nil {
		return "", err
	}
	a.logger.Warn("guessing user id", slog.String("id", id))
	if err := a.backend.SetUserID(id); err != nil {
		if !errors.Is(err, ErrSettingIDNotSupported) && !errors.Is(err, ErrNotRooted) {
			return "", err
		}
		a.logger.Debug("user id not persisted", slog.String("backend", a.backend.Name()), slog.Any("err", err))
	}
	return id, nil
}

// SetUserID persists id in the backend's configuration.
func (a *Adapter) SetUserID(id string) error {
	if _, _, err := ParseIdentity(id); err != nil {
		return err
	}
	return a.backend.SetUserID(id)
}

// SetUserIDOverride makes UserID return id without asking the backend. An
// empty id clears the override.
func (a *Adapter) SetUserIDOverride(id string) {
	a.userID = id
}
