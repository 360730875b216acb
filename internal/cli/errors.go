package cli

import (
	"errors"
	"fmt"
	"strings"

	"schedule-cli/internal/api"
	"schedule-cli/internal/session"
)

var errSessionExpired = errors.New("session expired; run `schedule login`")

type notFoundError struct {
	kind string
	id   int64
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.kind, e.id)
}

func errNotFound(kind string, id int64) error {
	return notFoundError{kind: kind, id: id}
}

// userError rewrites auth failures on private endpoints into the hint the
// user should act on. A 401 from login itself is a bad password.
func userError(err error) error {
	var ae *api.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotLoggedIn):
		return session.ErrNotLoggedIn
	case errors.As(err, &ae) && strings.HasPrefix(ae.Path, "/api/auth/"):
		return err
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("%w (%v)", errSessionExpired, err)
	default:
		return err
	}
}
