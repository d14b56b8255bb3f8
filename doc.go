// Package auth provides the authentication and identity-linking core for a
// multi-user ledger service: token issuance and validation, external
// directory login, and the registration flow that ties both together.
//
// Schemes:
//   - Tokens are dispatched by issuer. Locally issued HS256 token pairs
//     (refresh plus access) are validated by TokenService; directory issued
//     RS256 tokens are validated by ExternalVerifier against the directory's
//     JWKS. SchemeSelector performs the dispatch without verifying anything.
//
// Registration:
//   - Registrar reconciles a verified external identity into an application
//     user. The flow is idempotent for already-linked subjects, validates
//     profile fields with non-leaking prefill, and commits user, identity
//     link, and role grant in a single transaction. The first user ever
//     created becomes the bootstrap super administrator.
//
// Authorization:
//   - ClaimsResolver attaches the application role to an authenticated
//     Principal; identities without a linked user stay authenticated but
//     unassigned. Policies (RequireRole, RequireScheme, AllOf) evaluate the
//     resolved Principal, and RouteGuard exposes the whole pipeline as
//     router middleware.
package auth
