package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// LocalAuthenticator validates password credentials and manages the
// locally issued token pair lifecycle.
type LocalAuthenticator struct {
	provider IdentityProvider
	tokens   *TokenServiceImpl
	logger   Logger
	activity ActivitySink
}

// NewLocalAuthenticator returns a new LocalAuthenticator
func NewLocalAuthenticator(provider IdentityProvider, tokens *TokenServiceImpl) *LocalAuthenticator {
	return &LocalAuthenticator{
		provider: provider,
		tokens:   tokens,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (s *LocalAuthenticator) WithLogger(logger Logger) *LocalAuthenticator {
	s.logger = logger
	return s
}

// WithActivitySink installs a best-effort audit sink for login events.
func (s *LocalAuthenticator) WithActivitySink(sink ActivitySink) *LocalAuthenticator {
	s.activity = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this authenticator
func (s *LocalAuthenticator) TokenService() TokenService {
	return s.tokens
}

// Login verifies the credential and issues a fresh token pair. Every
// failure surfaces as the same unauthenticated error; the actual cause is
// only logged.
func (s *LocalAuthenticator) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		recordActivity(ctx, s.activity, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Subject:   identifier,
		})
		return nil, ErrUnauthenticated
	}

	if identity == nil || identity.ID() == "" {
		s.logger.Error("Login identity is nil or zero value")
		return nil, ErrUnauthenticated
	}

	pair, err := s.tokens.IssuePair(identity.ID())
	if err != nil {
		s.logger.Error("Login failed to issue token pair", "error", err)
		return nil, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Subject:   identity.ID(),
		UserID:    identity.ID(),
	})

	return pair, nil
}

// Refresh trades a valid refresh token for a new access token.
func (s *LocalAuthenticator) Refresh(refreshToken string) (string, error) {
	return s.tokens.IssueAccessToken(refreshToken)
}

// ValidateAccessToken reports the subject of a valid access token.
func (s *LocalAuthenticator) ValidateAccessToken(token string) (string, bool) {
	return s.tokens.ValidateAccessToken(token)
}

// UserProvider adapts the Users repository into an IdentityProvider.
type UserProvider struct {
	store  Users
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store Users) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = l
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// identity
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if !user.HasPasswordCredential() {
		// directory-only account; a password login can never succeed
		return nil, ErrMismatchedHashAndPassword
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	return authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		role:  user.Role,
	}, nil
}

// FindIdentityByIdentifier resolves an identity without a credential check.
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	return authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		role:  user.Role,
	}, nil
}

type authIdentity struct {
	id    string
	email string
	role  Role
}

func (a authIdentity) ID() string    { return a.id }
func (a authIdentity) Email() string { return a.email }
func (a authIdentity) Role() Role    { return a.role }

var _ Identity = authIdentity{}
