package passwd

import (
	"github.com/infodancer/lockauth"
	"github.com/infodancer/lockauth/errors"
)

func init() {
	lockauth.RegisterBackend("passwd", func(config lockauth.BackendConfig) (lockauth.Backend, error) {
		if config.CredentialBackend == "" {
			return nil, errors.ErrBackendConfigInvalid
		}
		return NewAgent(config.CredentialBackend, config.Logger), nil
	})
}
