package auth

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AuthControllerRoutes holds the paths the controller registers.
type AuthControllerRoutes struct {
	Login    string
	Refresh  string
	Register string
	Session  string
}

// AuthController exposes the authentication flows as JSON endpoints.
type AuthController struct {
	Logger       Logger
	Local        *LocalAuthenticator
	Registrar    *Registrar
	Guard        *RouteGuard
	Routes       *AuthControllerRoutes
	ErrorHandler func(c router.Context, err error) error
}

// AuthControllerOption configures the controller.
type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLocal wires the password authenticator.
func WithControllerLocal(local *LocalAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Local = local
		return c
	}
}

// WithControllerRegistrar wires the registration coordinator.
func WithControllerRegistrar(registrar *Registrar) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Registrar = registrar
		return c
	}
}

// WithControllerGuard wires the route guard used for session introspection.
func WithControllerGuard(guard *RouteGuard) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

// WithControllerLogger overrides the default logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// NewAuthController builds a controller with default routes.
func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:    "/auth/login",
			Refresh:  "/auth/refresh",
			Register: "/auth/register",
			Session:  "/auth/session",
		},
	}

	c.ErrorHandler = c.defaultErrHandler

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// RegisterAuthRoutes mounts the controller's endpoints on the router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("auth.refresh")

	app.Post(controller.Routes.Register, controller.RegisterPost).
		SetName("auth.register")

	if controller.Guard != nil {
		app.Get(controller.Routes.Session, controller.SessionGet,
			controller.Guard.Authenticate(false),
		).SetName("auth.session")
	}

	return controller
}

// LoginRequest is the password login payload.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginPost trades a password credential for a token pair.
func (c *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid login payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
	}

	pair, err := c.Local.Login(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, pair)
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// RefreshPost trades a valid refresh token for a new access token.
func (c *AuthController) RefreshPost(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid refresh payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
	}

	access, err := c.Local.Refresh(payload.RefreshToken)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"access_token": access,
	})
}

// RegisterRequest is the external identity registration payload.
type RegisterRequest struct {
	Subject           string              `json:"subject"`
	Issuer            string              `json:"issuer"`
	ManualFields      *RegistrationFields `json:"manual_fields,omitempty"`
	ManualAccessToken string              `json:"manual_access_token,omitempty"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subject,
			validation.Required.When(r.ManualAccessToken == ""),
			validation.Length(1, 255),
		),
	)
}

// RegisterPost runs the registration state machine. Soft outcomes are
// reported in the body with a 200; hard failures map to their status.
func (c *AuthController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid registration payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
	}

	input := RegistrationInput{
		Subject:           payload.Subject,
		Issuer:            payload.Issuer,
		ManualFields:      payload.ManualFields,
		ManualAccessToken: payload.ManualAccessToken,
	}

	// a logged-in caller is linking an extra identity to their account
	if principal, ok := PrincipalFromRouter(ctx, c.contextKey()); ok && principal.Scheme == SchemeLocal {
		if id, err := uuid.Parse(principal.Subject); err == nil {
			input.CallerUserID = id
		}
	}

	result, err := c.Registrar.Register(ctx.Context(), input)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// SessionGet reports the resolved principal for the current token.
func (c *AuthController) SessionGet(ctx router.Context) error {
	principal, ok := PrincipalFromRouter(ctx, c.contextKey())
	if !ok {
		return c.ErrorHandler(ctx, ErrUnauthenticated)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"subject": principal.Subject,
		"issuer":  principal.Issuer,
		"scheme":  principal.Scheme.String(),
		"role":    principal.Role.String(),
	})
}

func (c *AuthController) contextKey() string {
	if c.Guard != nil {
		return c.Guard.contextKey()
	}
	return "principal"
}

func (c *AuthController) defaultErrHandler(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "unexpected server error").
			WithCode(errors.CodeInternal)
	}

	c.Logger.Error("controller error", "text_code", richErr.TextCode, "category", richErr.Category)

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		if richErr.TextCode == TextCodeRegistrationDisabled {
			return ctx.JSON(router.StatusForbidden, map[string]string{
				"error": richErr.Message,
			})
		}
		// uniform body: token and credential failures are indistinguishable
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": ErrUnauthenticated.Message,
		})
	case errors.CategoryAuthz:
		return ctx.JSON(router.StatusForbidden, map[string]string{
			"error": richErr.Message,
		})
	default:
		return ctx.JSON(status, map[string]string{
			"error": richErr.Message,
		})
	}
}
