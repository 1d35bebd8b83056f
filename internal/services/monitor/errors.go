package monitor

import (
	"errors"
	"fmt"

	"github.com/NordCoder/Sitewatch/internal/domain"
)

var (
	// ErrNotFound covers unknown ids and ids owned by another user.
	ErrNotFound      = domain.ErrNotFound
	ErrDuplicateSite = errors.New("site already monitored")
	ErrInvalidURL    = errors.New("invalid site url")
	ErrStoreFailure  = errors.New("store failure")
)

// storeErr classifies a repository error. Not-found passes through, a
// uniqueness conflict means the site is already monitored and everything
// else aborts the operation as a store failure.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, domain.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrDuplicateSite)
	case errors.Is(err, ErrDuplicateSite), errors.Is(err, ErrInvalidURL):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
	}
}
