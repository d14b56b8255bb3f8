package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// resolverRule pairs a predicate with the transformation that attaches role
// claims for the matching scheme. Rules run in declaration order and the
// first match wins.
type resolverRule struct {
	match   func(p Principal) bool
	resolve func(ctx context.Context, p *Principal) error
}

// ClaimsResolver maps an authenticated identity to its application role.
// Resolution is pure per request: it reads the user store and never writes.
// A principal whose identity has no User stays authenticated with an
// unassigned role and fails every role gated policy.
type ClaimsResolver struct {
	repo   RepositoryManager
	logger Logger
	rules  []resolverRule
}

// NewClaimsResolver returns a resolver over the given repositories.
func NewClaimsResolver(repo RepositoryManager) *ClaimsResolver {
	r := &ClaimsResolver{
		repo:   repo,
		logger: defLogger{},
	}

	r.rules = []resolverRule{
		{
			match:   func(p Principal) bool { return p.Scheme == SchemeExternal },
			resolve: r.resolveExternal,
		},
		{
			match:   func(p Principal) bool { return p.Scheme == SchemeLocal },
			resolve: r.resolveLocal,
		},
	}

	return r
}

func (r *ClaimsResolver) WithLogger(logger Logger) *ClaimsResolver {
	r.logger = logger
	return r
}

// Resolve attaches the role claim for an authenticated principal.
func (r *ClaimsResolver) Resolve(ctx context.Context, p Principal) (Principal, error) {
	p.Role = UnassignedRole()

	for _, rule := range r.rules {
		if rule.match(p) {
			if err := rule.resolve(ctx, &p); err != nil {
				return p, err
			}
			return p, nil
		}
	}

	return p, nil
}

// resolveExternal looks up the identity link for the directory subject and
// attaches the owning user's role.
func (r *ClaimsResolver) resolveExternal(ctx context.Context, p *Principal) error {
	link, err := r.repo.IdentityLinks().GetBySubject(ctx, p.Subject)
	if err != nil {
		if errors.IsNotFound(err) {
			// authenticated, but not registered with us
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to resolve identity link")
	}

	user, err := r.repo.Users().GetByIdentifier(ctx, link.UserID.String())
	if err != nil {
		if errors.IsNotFound(err) {
			r.logger.Warn("identity link points at a missing user", "subject", p.Subject, "user_id", link.UserID)
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to resolve linked user")
	}

	p.Role = AssignedRole(user.Role)
	return nil
}

// resolveLocal looks up the user by the token subject.
func (r *ClaimsResolver) resolveLocal(ctx context.Context, p *Principal) error {
	user, err := r.repo.Users().GetByIdentifier(ctx, p.Subject)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to resolve local user")
	}

	p.Role = AssignedRole(user.Role)
	return nil
}
