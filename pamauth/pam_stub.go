//go:build !cgo || windows

package pamauth

import (
	"log/slog"

	"github.com/infodancer/lockauth"
	"github.com/infodancer/lockauth/errors"
)

func newBackend(string, bool, *slog.Logger) (lockauth.Backend, error) {
	return nil, errors.ErrBackendUnavailable
}
