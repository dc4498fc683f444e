// Package pamauth implements the lockauth backend on top of PAM.
//
// Each session is one PAM transaction: pam_start with the configured
// service, pam_authenticate, pam_acct_mgmt and pam_end. PAM conversation
// messages are routed through the session's conversation.Handler.
//
// Backend options:
//
//	silent = "true"   pass PAM_SILENT to the module stack
package pamauth

import (
	"github.com/infodancer/lockauth"
	"github.com/infodancer/lockauth/errors"
)

// DefaultService is used when the configuration names no service.
const DefaultService = "login"

func init() {
	lockauth.RegisterBackend("pam", func(config lockauth.BackendConfig) (lockauth.Backend, error) {
		service := config.Service
		if service == "" {
			service = DefaultService
		}
		silent := false
		switch config.Options["silent"] {
		case "", "false":
		case "true":
			silent = true
		default:
			return nil, errors.ErrBackendConfigInvalid
		}
		return newBackend(service, silent, config.Logger)
	})
}
