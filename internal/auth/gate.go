package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/audit"
	"github.com/incidenta/incidenta/internal/auth/session"
	"github.com/incidenta/incidenta/internal/auth/token"
	"github.com/incidenta/incidenta/internal/db/models"
	"github.com/incidenta/incidenta/internal/uniuri"
)

// Level is the authorization level a route declares. Route classification is
// a declared property of each endpoint, never inferred from URL paths.
type Level int

const (
	// LevelAnyStagedOrSession accepts session tokens and every
	// staged-security class. Only the staged-flow endpoints use it.
	LevelAnyStagedOrSession Level = iota
	// LevelSessionOnly accepts session-class tokens exclusively and, for
	// non-exempt principals, rejects accounts with pending security steps.
	LevelSessionOnly
)

// Stage identifies the step a login flow is in.
type Stage string

const (
	// StageSession means a full session was issued.
	StageSession Stage = "session"
	// StagePasswordChange means the user must set a new password first.
	StagePasswordChange Stage = "password_change"
	// StageTwoFAEnroll means the user must enroll a TOTP secret.
	StageTwoFAEnroll Stage = "2fa_enroll"
	// StageTwoFAVerify means the user must submit a TOTP code.
	StageTwoFAVerify Stage = "2fa_verify"
)

const (
	defaultLockoutThreshold = 5
	defaultLockoutWindow    = 15 * time.Minute
	defaultSessionTTL       = 30 * time.Minute
	defaultStagedTTL        = 10 * time.Minute

	recoveryCodeCount  = 8
	recoveryCodeLength = 10
)

// GateConfig tunes the authentication gate.
type GateConfig struct {
	// SessionTTL is the lifetime of session-class tokens.
	SessionTTL time.Duration
	// StagedTTL is the lifetime of staged-security tokens.
	StagedTTL time.Duration
	// LockoutThreshold is the number of consecutive failures that locks the
	// account.
	LockoutThreshold int
	// LockoutWindow is how long a locked account stays unusable.
	LockoutWindow time.Duration
	// TOTPIssuer is the issuer name shown in authenticator apps.
	TOTPIssuer string
	// ReservedUsernames are service accounts exempt from staged security.
	ReservedUsernames []string
}

func (c GateConfig) withDefaults() GateConfig {
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}

	if c.StagedTTL <= 0 {
		c.StagedTTL = defaultStagedTTL
	}

	if c.LockoutThreshold <= 0 {
		c.LockoutThreshold = defaultLockoutThreshold
	}

	if c.LockoutWindow <= 0 {
		c.LockoutWindow = defaultLockoutWindow
	}

	if c.TOTPIssuer == "" {
		c.TOTPIssuer = "Incidenta"
	}

	return c
}

// LoginInput carries the credentials and client metadata of a login attempt.
type LoginInput struct {
	Identifier string
	Password   string
	IP         string
	UserAgent  string
}

// LoginResult is the outcome of a successful credential check: either a full
// session or the first staged-security step, with the complete list of
// pending steps so the client can present the whole flow.
type LoginResult struct {
	// Stage is the step the issued token is valid for.
	Stage Stage
	// Pending lists every unresolved staged step, in the order the client
	// must resolve them (password first, then 2FA).
	Pending []Stage
	// Token is the bearer credential for the current stage.
	Token string
	// SessionID is set when Stage is StageSession.
	SessionID string
	// UserID is the authenticated account.
	UserID uint64
}

// Enrollment is the material returned when 2FA enrollment begins.
type Enrollment struct {
	// Secret is the TOTP shared secret, pending until confirmed.
	Secret string
	// URL is the otpauth:// provisioning URL for authenticator apps.
	URL string
	// RecoveryCodes are one-time codes issued alongside the secret.
	RecoveryCodes []string
}

// Gate orchestrates authentication: credential verification, the staged
// login state machine, and per-request token-to-principal resolution.
// Collaborators are injected so the gate is testable with fakes.
type Gate struct {
	db       *gorm.DB
	tokens   *token.Service
	sessions *session.Store
	sink     *audit.Dispatcher
	cfg      GateConfig

	now func() time.Time
}

// NewGate creates an authentication gate.
func NewGate(
	db *gorm.DB,
	tokens *token.Service,
	sessions *session.Store,
	sink *audit.Dispatcher,
	cfg GateConfig,
) *Gate {
	return &Gate{
		db:       db,
		tokens:   tokens,
		sessions: sessions,
		sink:     sink,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// Login verifies the identifier and password and advances the login state
// machine: exempt principals and users with nothing pending get a full
// session; pending security flags yield a staged token instead. Unknown
// identifiers and wrong passwords are indistinguishable to the caller.
func (g *Gate) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	var user models.User

	err := g.db.WithContext(ctx).
		Where("username = ? OR email = ?", in.Identifier, in.Identifier).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		g.audit(audit.ActionLoginFailure, 0, in, "unknown identifier")
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	now := g.now()
	if user.LockedAt(now) {
		g.audit(audit.ActionLoginFailure, user.ID, in, "account locked")

		remaining := int(user.LockedUntil.Sub(now).Minutes()) + 1

		return nil, fmt.Errorf("%w: try again in %d minutes", ErrAccountLocked, remaining)
	}

	if !user.Active {
		g.audit(audit.ActionLoginFailure, user.ID, in, "inactive account")
		return nil, ErrInactiveAccount
	}

	if !user.VerifyPassword(in.Password) {
		if err := g.registerFailure(ctx, &user, now); err != nil {
			return nil, err
		}

		g.audit(audit.ActionLoginFailure, user.ID, in, "wrong password")

		return nil, ErrInvalidCredentials
	}

	if err := g.resetFailures(ctx, &user); err != nil {
		return nil, err
	}

	if !g.exempt(&user) {
		if user.SecurityPending() {
			return g.issueStaged(&user, in)
		}

		if user.TwoFAEnabled {
			return g.issueTwoFAVerify(&user, in)
		}
	}

	return g.issueSession(ctx, &user, in.IP, in.UserAgent)
}

// registerFailure bumps the consecutive-failure counter and opens a lockout
// window once the threshold is reached. Last-writer-wins is acceptable here;
// concurrent attempts racing the counter is not a correctness problem.
func (g *Gate) registerFailure(ctx context.Context, user *models.User, now time.Time) error {
	user.FailedLoginAttempts++

	updates := map[string]interface{}{
		"failed_login_attempts": user.FailedLoginAttempts,
	}

	if user.FailedLoginAttempts >= g.cfg.LockoutThreshold {
		lockedUntil := now.Add(g.cfg.LockoutWindow)
		user.LockedUntil = &lockedUntil
		updates["locked_until"] = lockedUntil
	}

	err := g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}

	return nil
}

func (g *Gate) resetFailures(ctx context.Context, user *models.User) error {
	if user.FailedLoginAttempts == 0 && user.LockedUntil == nil {
		return nil
	}

	err := g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"locked_until":          nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil

	return nil
}

// issueStaged reports every pending step at once (password first, then 2FA)
// and issues a token for the first one. The ordinary 2FA-verify check is not
// considered while pending flags remain.
func (g *Gate) issueStaged(user *models.User, in LoginInput) (*LoginResult, error) {
	var pending []Stage

	if user.ForcePasswordChange {
		pending = append(pending, StagePasswordChange)
	}

	if user.TwoFAEnrollMandatory || user.TwoFAResetNextLogin {
		pending = append(pending, StageTwoFAEnroll)
	}

	scope := token.ClassPasswordChange
	if !user.ForcePasswordChange {
		scope = token.ClassTwoFAReset
	}

	staged, err := g.tokens.Issue(subject(user.ID), []string{scope}, g.cfg.StagedTTL, "")
	if err != nil {
		return nil, err
	}

	g.audit(audit.ActionLoginSuccess, user.ID, in, "staged: "+string(pending[0]))

	return &LoginResult{
		Stage:   pending[0],
		Pending: pending,
		Token:   staged,
		UserID:  user.ID,
	}, nil
}

func (g *Gate) issueTwoFAVerify(user *models.User, in LoginInput) (*LoginResult, error) {
	staged, err := g.tokens.Issue(subject(user.ID), []string{token.ClassTwoFAVerify}, g.cfg.StagedTTL, "")
	if err != nil {
		return nil, err
	}

	g.audit(audit.ActionLoginSuccess, user.ID, in, "staged: "+string(StageTwoFAVerify))

	return &LoginResult{
		Stage:  StageTwoFAVerify,
		Token:  staged,
		UserID: user.ID,
	}, nil
}

func (g *Gate) issueSession(ctx context.Context, user *models.User, ip, userAgent string) (*LoginResult, error) {
	sess, err := g.sessions.Create(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	scopes := []string{token.ClassSession}
	if user.Superuser {
		scopes = append(scopes, token.ClassSuperuser)
	}

	full, err := g.tokens.Issue(subject(user.ID), scopes, g.cfg.SessionTTL, sess.ID)
	if err != nil {
		return nil, err
	}

	g.audit(audit.ActionLoginSuccess, user.ID, LoginInput{IP: ip, UserAgent: userAgent}, "full session")

	return &LoginResult{
		Stage:     StageSession,
		Token:     full,
		SessionID: sess.ID,
		UserID:    user.ID,
	}, nil
}

// CompletePasswordChange finishes the forced password-change step and issues
// the next stage: 2FA enrollment, 2FA verification, or a full session.
func (g *Gate) CompletePasswordChange(
	ctx context.Context,
	claims *token.Claims,
	currentPassword, newPassword, ip, userAgent string,
) (*LoginResult, error) {
	if !claims.HasAny(token.ClassPasswordChange) {
		return nil, ErrInsufficientScope
	}

	user, err := g.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	if !user.VerifyPassword(currentPassword) {
		return nil, ErrInvalidCredentials
	}

	err = g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"password":              models.HashPassword(newPassword),
			"force_password_change": false,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	user.ForcePasswordChange = false

	in := LoginInput{IP: ip, UserAgent: userAgent}

	if user.TwoFAEnrollMandatory || user.TwoFAResetNextLogin {
		return g.issueStaged(user, in)
	}

	if user.TwoFAEnabled {
		return g.issueTwoFAVerify(user, in)
	}

	return g.issueSession(ctx, user, ip, userAgent)
}

// Begin2FAEnrollment generates a TOTP secret and recovery codes. The secret
// stays pending until a valid code confirms it via Verify2FA.
func (g *Gate) Begin2FAEnrollment(ctx context.Context, claims *token.Claims) (*Enrollment, error) {
	if !claims.HasAny(token.ClassTwoFAReset, token.ClassSession) {
		return nil, ErrInsufficientScope
	}

	user, err := g.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.cfg.TOTPIssuer,
		AccountName: user.Username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	codes := make([]string, recoveryCodeCount)
	joined := ""

	for i := range codes {
		codes[i] = uniuri.NewLen(recoveryCodeLength)
		if i > 0 {
			joined += ","
		}

		joined += codes[i]
	}

	err = g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"pending_totp_secret": key.Secret(),
			"recovery_codes":      joined,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store pending totp secret: %w", err)
	}

	return &Enrollment{
		Secret:        key.Secret(),
		URL:           key.URL(),
		RecoveryCodes: codes,
	}, nil
}

// Verify2FA checks a TOTP code. With a 2fa:reset token it confirms a pending
// enrollment; with a 2fa:verify token it finishes an ordinary login. Either
// way a full session is issued on success.
func (g *Gate) Verify2FA(
	ctx context.Context,
	claims *token.Claims,
	code, ip, userAgent string,
) (*LoginResult, error) {
	if !claims.HasAny(token.ClassTwoFAVerify, token.ClassTwoFAReset) {
		return nil, ErrInsufficientScope
	}

	user, err := g.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	if claims.HasAny(token.ClassTwoFAReset) {
		if user.PendingTOTPSecret == "" || !totp.Validate(code, user.PendingTOTPSecret) {
			return nil, ErrInvalidTwoFACode
		}

		err = g.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"totp_secret":            user.PendingTOTPSecret,
				"pending_totp_secret":    "",
				"twofa_enabled":          true,
				"twofa_enroll_mandatory": false,
				"twofa_reset_next_login": false,
			}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to confirm totp secret: %w", err)
		}

		user.TwoFAEnabled = true
		user.TwoFAEnrollMandatory = false
		user.TwoFAResetNextLogin = false

		if user.ForcePasswordChange {
			// Password flag set mid-flow; the password step still precedes
			// a full session.
			return g.issueStaged(user, LoginInput{IP: ip, UserAgent: userAgent})
		}

		return g.issueSession(ctx, user, ip, userAgent)
	}

	if user.TOTPSecret == "" || !totp.Validate(code, user.TOTPSecret) {
		return nil, ErrInvalidTwoFACode
	}

	return g.issueSession(ctx, user, ip, userAgent)
}

// Authenticate validates a bearer token and resolves it to a principal:
// token validation, session liveness, account-state checks, and capability
// loading, in that order. A revoked or mismatched session fails exactly like
// an invalid signature. The validated claims are returned alongside the
// principal so callers can continue a staged flow.
func (g *Gate) Authenticate(ctx context.Context, raw string, level Level) (*Principal, *token.Claims, error) {
	claims, err := g.tokens.Validate(raw)
	if err != nil {
		return nil, nil, err
	}

	if !claims.HasAny(
		token.ClassSession,
		token.ClassPasswordChange,
		token.ClassTwoFAReset,
		token.ClassTwoFAVerify,
	) {
		return nil, nil, ErrInsufficientScope
	}

	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return nil, nil, token.ErrInvalidToken
	}

	if claims.HasAny(token.ClassSession) {
		if claims.SessionID == "" {
			return nil, nil, token.ErrInvalidToken
		}

		sess, err := g.sessions.GetByID(ctx, claims.SessionID)
		if err != nil {
			return nil, nil, token.ErrInvalidToken
		}

		if !sess.Active || sess.UserID != userID {
			return nil, nil, token.ErrInvalidToken
		}
	}

	var user models.User
	if err := g.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, nil, token.ErrInvalidToken
	}

	if !user.Active {
		return nil, nil, ErrInactiveAccount
	}

	if level == LevelSessionOnly && !g.exempt(&user) {
		if !claims.HasAny(token.ClassSession) {
			// A staged-security token past the staged endpoints reads as
			// bad credentials, indistinguishable from a wrong password.
			return nil, nil, ErrInvalidCredentials
		}

		if user.SecurityPending() {
			return nil, nil, ErrStagedSecurityRequired
		}
	}

	principal, err := LoadPrincipal(ctx, g.db, user)
	if err != nil {
		return nil, nil, err
	}

	return principal, claims, nil
}

// Logout deactivates the token's session, if it has one.
func (g *Gate) Logout(ctx context.Context, claims *token.Claims) error {
	if claims.SessionID == "" {
		return nil
	}

	if err := g.sessions.Deactivate(ctx, claims.SessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil
		}

		return err
	}

	userID, _ := parseSubject(claims.Subject)
	g.audit(audit.ActionLogout, userID, LoginInput{}, "")

	return nil
}

// LogoutOthers deactivates every session of the subject except the caller's
// own and returns how many were revoked.
func (g *Gate) LogoutOthers(ctx context.Context, claims *token.Claims) (int64, error) {
	if !claims.HasAny(token.ClassSession) || claims.SessionID == "" {
		return 0, ErrInsufficientScope
	}

	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return 0, token.ErrInvalidToken
	}

	count, err := g.sessions.DeactivateAllExcept(ctx, userID, claims.SessionID)
	if err != nil {
		return 0, err
	}

	g.audit(audit.ActionLogoutOthers, userID, LoginInput{}, strconv.FormatInt(count, 10)+" sessions revoked")

	return count, nil
}

func (g *Gate) userFromClaims(ctx context.Context, claims *token.Claims) (*models.User, error) {
	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return nil, token.ErrInvalidToken
	}

	var user models.User
	if err := g.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, token.ErrInvalidToken
	}

	if !user.Active {
		return nil, ErrInactiveAccount
	}

	return &user, nil
}

// exempt reports whether the user skips the staged-security checks. Exempt
// principals still go through every scope check.
func (g *Gate) exempt(user *models.User) bool {
	if user.PolicyExempt {
		return true
	}

	for _, reserved := range g.cfg.ReservedUsernames {
		if user.Username == reserved {
			return true
		}
	}

	return false
}

func (g *Gate) audit(action string, userID uint64, in LoginInput, detail string) {
	if g.sink == nil {
		return
	}

	g.sink.Emit(audit.Event{
		Action:     action,
		UserID:     userID,
		Identifier: in.Identifier,
		IP:         in.IP,
		Detail:     detail,
	})
}

func subject(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseSubject(sub string) (uint64, error) {
	return strconv.ParseUint(sub, 10, 64)
}
