package auth

import "context"

// ClaimsDecorator can mutate allowed claim extensions before a token is
// signed. Implementations may only touch extension fields such as Scope;
// registered identity claims (sub, iss, aud, exp, iat) are restored after
// decoration so core token semantics stay stable.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, claims *TokenClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(ctx context.Context, claims *TokenClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, claims *TokenClaims) error {
	if f == nil {
		return nil
	}
	return f(ctx, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, *TokenClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}

// decorateClaims runs the decorator and restores the registered claims.
func decorateClaims(ctx context.Context, decorator ClaimsDecorator, claims *TokenClaims) error {
	if claims == nil {
		return nil
	}

	registered := claims.RegisteredClaims

	if err := normalizeClaimsDecorator(decorator).Decorate(ctx, claims); err != nil {
		return err
	}

	claims.RegisteredClaims = registered
	return nil
}
