package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RegisterIdentityMessage asks the Registrar to reconcile an external
// identity into an application user.
type RegisterIdentityMessage struct {
	Subject           string              `json:"subject" doc:"Verified external subject id"`
	Issuer            string              `json:"issuer" doc:"Directory issuer"`
	ManualFields      *RegistrationFields `json:"manual_fields,omitempty" doc:"Caller supplied profile attributes"`
	ManualAccessToken string              `json:"-" doc:"Directory access token for profile lookup"`
	OnResponse        func(r *RegistrationResult)
}

func (e RegisterIdentityMessage) Type() string { return "identity.register" }

// RegisterIdentityHandler executes registrations dispatched as commands.
type RegisterIdentityHandler struct {
	registrar *Registrar
}

// NewRegisterIdentityHandler creates the command handler.
func NewRegisterIdentityHandler(registrar *Registrar) *RegisterIdentityHandler {
	return &RegisterIdentityHandler{registrar: registrar}
}

func (h *RegisterIdentityHandler) Execute(ctx context.Context, event RegisterIdentityMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during identity registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterIdentityHandler) execute(ctx context.Context, event RegisterIdentityMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	result, err := h.registrar.Register(ctx, RegistrationInput{
		Subject:           event.Subject,
		Issuer:            event.Issuer,
		ManualFields:      event.ManualFields,
		ManualAccessToken: event.ManualAccessToken,
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "identity registration failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(result)
	}

	return nil
}
