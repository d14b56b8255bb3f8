package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegistrationStatus is the outcome of one registration attempt.
type RegistrationStatus string

const (
	// RegistrationSuccess means a user was created or linked.
	RegistrationSuccess RegistrationStatus = "success"
	// RegistrationInvalidFields means the profile fields failed validation.
	RegistrationInvalidFields RegistrationStatus = "invalid-fields"
	// RegistrationAlreadyRegistered means the external identity is already
	// linked. Terminal and idempotent: repeat calls never mutate state.
	RegistrationAlreadyRegistered RegistrationStatus = "already-registered"
	// RegistrationEmailTakenUnverified means the email belongs to an
	// existing unconfirmed account. The owning user id is withheld.
	RegistrationEmailTakenUnverified RegistrationStatus = "email-taken-unverified"
	// RegistrationUnknownError accompanies a hard failure.
	RegistrationUnknownError RegistrationStatus = "unknown-error"
)

// RegistrationFields are the profile attributes a registration consumes.
type RegistrationFields struct {
	DisplayName string `json:"display_name"`
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
	Email       string `json:"email"`
}

var (
	displayNameRules = []validation.Rule{validation.Required, validation.Length(1, 200)}
	givenNameRules   = []validation.Rule{validation.Required, validation.Length(1, 100)}
	familyNameRules  = []validation.Rule{validation.Required, validation.Length(1, 100)}
	emailRules       = []validation.Rule{validation.Required, validation.Length(6, 254), is.Email}
)

// Validate enforces presence, storage length limits, and email shape.
func (f RegistrationFields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.DisplayName, displayNameRules...),
		validation.Field(&f.GivenName, givenNameRules...),
		validation.Field(&f.FamilyName, familyNameRules...),
		validation.Field(&f.Email, emailRules...),
	)
}

// Prefill returns the subset of fields that individually pass validation.
// A failing field is never echoed back to the caller.
func (f RegistrationFields) Prefill() *RegistrationFields {
	p := &RegistrationFields{}
	if validation.Validate(f.DisplayName, displayNameRules...) == nil {
		p.DisplayName = f.DisplayName
	}
	if validation.Validate(f.GivenName, givenNameRules...) == nil {
		p.GivenName = f.GivenName
	}
	if validation.Validate(f.FamilyName, familyNameRules...) == nil {
		p.FamilyName = f.FamilyName
	}
	if validation.Validate(f.Email, emailRules...) == nil {
		p.Email = f.Email
	}
	return p
}

// RegistrationInput describes one registration or linking attempt.
type RegistrationInput struct {
	// Subject is the validated external subject id, normally taken from a
	// token the ExternalVerifier already accepted.
	Subject string
	// Issuer is the directory issuer; defaults to the configured authority.
	Issuer string
	// Profile carries directory attributes when the caller already fetched
	// them.
	Profile *ExternalProfile
	// ManualFields are caller supplied attributes used when the directory
	// payload is missing or incomplete. Non empty values win.
	ManualFields *RegistrationFields
	// ManualAccessToken, when set, makes the Registrar fetch the verified
	// profile from the directory itself.
	ManualAccessToken string
	// CallerUserID is set when an authenticated user links an additional
	// identity to their own account.
	CallerUserID uuid.UUID
}

// RegistrationResult is the typed outcome callers branch on.
type RegistrationResult struct {
	Status  RegistrationStatus  `json:"status"`
	UserID  *uuid.UUID          `json:"user_id,omitempty"`
	Prefill *RegistrationFields `json:"prefill,omitempty"`
}

// Registrar reconciles external identities into application users. User
// create, link insert, and role grant always commit or roll back as one
// unit; no partial user-without-link state is ever observable.
type Registrar struct {
	repo           RepositoryManager
	directory      ExternalIdentityClient
	settings       *SettingsStore
	externalIssuer string
	logger         Logger
	activity       ActivitySink
	useHashid      bool
}

// RegistrarOption configures a Registrar.
type RegistrarOption func(*Registrar)

// WithDirectoryClient wires the client used to resolve manual access tokens.
func WithDirectoryClient(client ExternalIdentityClient) RegistrarOption {
	return func(r *Registrar) {
		r.directory = client
	}
}

// WithRegistrarLogger overrides the default logger.
func WithRegistrarLogger(logger Logger) RegistrarOption {
	return func(r *Registrar) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistrarActivitySink installs a best-effort audit sink for
// registration outcomes.
func WithRegistrarActivitySink(sink ActivitySink) RegistrarOption {
	return func(r *Registrar) {
		r.activity = normalizeActivitySink(sink)
	}
}

// WithDeterministicUserIDs derives new user ids from the email address.
func WithDeterministicUserIDs() RegistrarOption {
	return func(r *Registrar) {
		r.useHashid = true
	}
}

// NewRegistrar creates the registration coordinator.
func NewRegistrar(repo RepositoryManager, settings *SettingsStore, externalIssuer string, opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		repo:           repo,
		settings:       settings,
		externalIssuer: externalIssuer,
		logger:         defLogger{},
		activity:       noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Register runs the registration state machine for one external identity.
// Soft outcomes (invalid fields, already registered, email taken) come back
// as typed results with a nil error; registration-disabled, identity
// conflicts, directory outages, and unknown errors are hard failures.
func (r *Registrar) Register(ctx context.Context, input RegistrationInput) (*RegistrationResult, error) {
	fields, err := r.resolveFields(ctx, &input)
	if err != nil {
		return nil, err
	}

	if input.Subject == "" {
		return r.unknown(errors.New("registration requires an external subject", errors.CategoryBadInput))
	}

	// Idempotent fast path. Advisory only: the unique subject index inside
	// the transaction is the real arbiter for concurrent first logins.
	if link, err := r.repo.IdentityLinks().GetBySubject(ctx, input.Subject); err == nil {
		recordActivity(ctx, r.activity, r.logger, ActivityEvent{
			EventType: ActivityEventRegistrationDuplicate,
			Subject:   input.Subject,
			UserID:    link.UserID.String(),
		})
		return &RegistrationResult{Status: RegistrationAlreadyRegistered, UserID: &link.UserID}, nil
	} else if !repository.IsRecordNotFound(err) {
		return r.unknown(err)
	}

	if !r.settings.Snapshot().RegistrationEnabled {
		recordActivity(ctx, r.activity, r.logger, ActivityEvent{
			EventType: ActivityEventRegistrationRejected,
			Subject:   input.Subject,
			Metadata:  map[string]any{"reason": "registration disabled"},
		})
		return nil, ErrRegistrationDisabled
	}

	if err := fields.Validate(); err != nil {
		if input.ManualAccessToken == "" {
			return &RegistrationResult{
				Status:  RegistrationInvalidFields,
				Prefill: fields.Prefill(),
			}, nil
		}
		return r.unknown(err)
	}

	var result *RegistrationResult
	txErr := r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := r.reconcile(ctx, tx, input, fields)
		if err != nil {
			return err
		}
		result = res
		return nil
	})

	if txErr != nil {
		if IsUniqueViolation(txErr) {
			// lost a concurrent first-login race; the winner's link is
			// committed and visible now
			if link, err := r.repo.IdentityLinks().GetBySubject(ctx, input.Subject); err == nil {
				return &RegistrationResult{Status: RegistrationAlreadyRegistered, UserID: &link.UserID}, nil
			}
		}

		var richErr *errors.Error
		if errors.As(txErr, &richErr) && richErr.TextCode == TextCodeIdentityConflict {
			recordActivity(ctx, r.activity, r.logger, ActivityEvent{
				EventType: ActivityEventRegistrationConflict,
				Subject:   input.Subject,
			})
			return nil, txErr
		}

		return r.unknown(txErr)
	}

	if result.Status == RegistrationSuccess && result.UserID != nil {
		recordActivity(ctx, r.activity, r.logger, ActivityEvent{
			EventType: ActivityEventRegistrationSuccess,
			Subject:   input.Subject,
			UserID:    result.UserID.String(),
		})
	}

	return result, nil
}

// reconcile is the transactional body: steps 3-4 of the state machine.
func (r *Registrar) reconcile(ctx context.Context, tx bun.IDB, input RegistrationInput, fields RegistrationFields) (*RegistrationResult, error) {
	users := r.repo.Users()
	links := r.repo.IdentityLinks()
	settings := r.settings.Snapshot()

	// recheck under the transaction
	if link, err := links.GetBySubjectTx(ctx, tx, input.Subject); err == nil {
		return &RegistrationResult{Status: RegistrationAlreadyRegistered, UserID: &link.UserID}, nil
	} else if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	owner, err := users.GetByEmailTx(ctx, tx, fields.Email)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			return nil, err
		}
		owner = nil
	}

	if input.CallerUserID != uuid.Nil {
		// An authenticated caller may only attach identities to their own
		// account. An email is never trusted to pick somebody else's.
		if owner != nil && owner.ID != input.CallerUserID {
			return nil, ErrIdentityConflict.Clone().WithMetadata(map[string]any{
				"subject": input.Subject,
			})
		}
		if owner == nil {
			owner, err = users.GetByIdentifierTx(ctx, tx, input.CallerUserID.String())
			if err != nil {
				return nil, err
			}
		}
	}

	if owner == nil {
		return r.createOwner(ctx, tx, input, fields)
	}

	if settings.RequireEmailConfirmation && !owner.EmailVerified && input.CallerUserID == uuid.Nil {
		// the owning user id is withheld so callers cannot probe which
		// emails are registered
		return &RegistrationResult{Status: RegistrationEmailTakenUnverified}, nil
	}

	if err := users.MarkEmailVerifiedTx(ctx, tx, owner.ID); err != nil {
		return nil, err
	}

	if _, err := links.CreateTx(ctx, tx, r.newLink(input, fields, owner.ID)); err != nil {
		return nil, err
	}

	return &RegistrationResult{Status: RegistrationSuccess, UserID: &owner.ID}, nil
}

// createOwner creates user, link, and role grant as one unit.
func (r *Registrar) createOwner(ctx context.Context, tx bun.IDB, input RegistrationInput, fields RegistrationFields) (*RegistrationResult, error) {
	users := r.repo.Users()

	count, err := users.CountTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	// The very first user becomes the bootstrap super administrator; every
	// later self-registration starts at the bottom of the hierarchy.
	role := RoleReadOnly
	if count == 0 {
		role = RoleSuperAdmin
	}

	user := &User{
		FirstName:     fields.GivenName,
		LastName:      fields.FamilyName,
		Email:         fields.Email,
		EmailVerified: true, // the directory vouched for it
		Role:          role,
	}

	if r.useHashid {
		if id, err := hashid.NewUUID(fields.Email); err == nil {
			user.ID = id
		}
	}

	created, err := users.RegisterTx(ctx, tx, user)
	if err != nil {
		return nil, err
	}

	if _, err := r.repo.IdentityLinks().CreateTx(ctx, tx, r.newLink(input, fields, created.ID)); err != nil {
		return nil, err
	}

	return &RegistrationResult{Status: RegistrationSuccess, UserID: &created.ID}, nil
}

func (r *Registrar) newLink(input RegistrationInput, fields RegistrationFields, userID uuid.UUID) *IdentityLink {
	issuer := input.Issuer
	if issuer == "" {
		issuer = r.externalIssuer
	}

	return &IdentityLink{
		Subject:     input.Subject,
		Issuer:      issuer,
		UserID:      userID,
		Email:       fields.Email,
		DisplayName: fields.DisplayName,
	}
}

// resolveFields assembles profile attributes from, in order of precedence,
// manual fields, the directory (when a manual token was supplied), and any
// pre-fetched profile.
func (r *Registrar) resolveFields(ctx context.Context, input *RegistrationInput) (RegistrationFields, error) {
	fields := RegistrationFields{}

	if input.Profile != nil {
		fields = fieldsFromProfile(input.Profile)
		if input.Subject == "" {
			input.Subject = input.Profile.Subject
		}
	}

	if input.ManualAccessToken != "" {
		if r.directory == nil {
			return fields, errors.New("no directory client configured", errors.CategoryInternal)
		}

		// the only network call in the path; outages surface distinctly
		profile, err := r.directory.Profile(ctx, input.ManualAccessToken)
		if err != nil {
			return fields, err
		}

		fields = mergeFields(fields, fieldsFromProfile(profile))
		if input.Subject == "" {
			input.Subject = profile.Subject
		}
	}

	if input.ManualFields != nil {
		fields = mergeFields(fields, *input.ManualFields)
	}

	// mailbox case is not significant; the email lookup and the unique
	// index compare bytes, so one casing must reach both
	fields.Email = strings.ToLower(strings.TrimSpace(fields.Email))

	return fields, nil
}

func fieldsFromProfile(p *ExternalProfile) RegistrationFields {
	if p == nil {
		return RegistrationFields{}
	}
	return RegistrationFields{
		DisplayName: p.DisplayName,
		GivenName:   p.GivenName,
		FamilyName:  p.FamilyName,
		Email:       p.Email,
	}
}

// mergeFields overlays override on base; non empty override values win.
func mergeFields(base, override RegistrationFields) RegistrationFields {
	if override.DisplayName != "" {
		base.DisplayName = override.DisplayName
	}
	if override.GivenName != "" {
		base.GivenName = override.GivenName
	}
	if override.FamilyName != "" {
		base.FamilyName = override.FamilyName
	}
	if override.Email != "" {
		base.Email = override.Email
	}
	return base
}

func (r *Registrar) unknown(err error) (*RegistrationResult, error) {
	r.logger.Error("registration failed", "error", err)

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return &RegistrationResult{Status: RegistrationUnknownError}, richErr
	}

	return &RegistrationResult{Status: RegistrationUnknownError},
		errors.Wrap(err, errors.CategoryInternal, "registration failed")
}
