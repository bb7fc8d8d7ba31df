// Package emailsvc provides the core.EmailService backends.
package emailsvc

import (
	"github.com/confhub/backend/core"
)

// NewService returns the backend selected by conf.Email.Backend; console by default.
func NewService(conf *core.Config, logger core.Logger) core.EmailService {
	switch conf.Email.Backend {
	case "sendgrid":
		return NewSendgridService(conf, logger)
	case "smtp":
		return NewSMTPService(conf, logger)
	default:
		return NewConsoleService(conf, logger)
	}
}
