package handlers

import (
	"github.com/authcove/authcove/server"
	"github.com/authcove/authcove/services/auth"
	"github.com/authcove/authcove/services/events"
	"github.com/authcove/authcove/services/mail"
	"github.com/authcove/authcove/services/verification"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(wire),
)

// wire connects the late-bound collaborators (the services have a dependency
// cycle on paper: auth triggers verification, verification notifies via mail)
// and registers routes.
func wire(h *Handler, authSvc *auth.Service, verificationSvc *verification.Service, mailSvc *mail.Service, eventsSvc *events.Service, srv *server.Server) {
	authSvc.SetVerificationIssuer(verificationSvc)
	verificationSvc.SetNotifier(mailSvc)

	if h.config.Events.Enabled {
		authSvc.SetEventPublisher(eventsSvc)
		verificationSvc.SetEventPublisher(eventsSvc)
	}

	h.RegisterRoutes(srv)
}
