// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"chatgate/internal/domain"
	"chatgate/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

// PublicUser is the reserved shared guest account.
const PublicUser = "public"

// Authentication failure messages returned by VerifyCredentials.
const (
	MsgLocalUserNotFound = "local user does not exist"
	MsgPasswordMismatch  = "incorrect password"
	MsgEmptyPassword     = "password is required"
	msgBothFailed        = "local and SSO authentication both failed, please try registering. msg: %s"
	MsgPublicRateLimited = "public users are limited to 1 request per second; try again later or log in to use a dedicated bot"
)

var (
	// ErrSSOUnavailable indicates that the SSO client could not be constructed.
	ErrSSOUnavailable = errors.New("sso unavailable")
)

// ssoUsersArePlus would grant PLUS to every SSO account. Disabled until the
// business rule is confirmed.
const ssoUsersArePlus = false

// SSOFactory builds the SSO client on first use.
type SSOFactory func(ctx context.Context) (domain.SSOVerifier, error)

// Options configures an AccessManager.
type Options struct {
	// UseSSO is the default returned by SSOEnabled.
	UseSSO     bool
	SSOFactory SSOFactory
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     logging.Logger
}

// AccessManager authenticates users, derives permission levels and mutates
// the credential and session stores on their behalf. It keeps no copy of
// either store.
type AccessManager struct {
	creds    domain.CredentialRepository
	sessions domain.SessionRepository
	log      logging.Logger
	useSSO   bool
	cost     int

	ssoMu      sync.Mutex
	ssoFactory SSOFactory
	sso        domain.SSOVerifier
}

// NewAccessManager creates a new access manager.
func NewAccessManager(creds domain.CredentialRepository, sessions domain.SessionRepository, opts Options) *AccessManager {
	m := &AccessManager{
		creds:      creds,
		sessions:   sessions,
		log:        opts.Logger,
		useSSO:     opts.UseSSO,
		cost:       opts.BcryptCost,
		ssoFactory: opts.SSOFactory,
	}
	if m.log == nil {
		m.log = logging.Discard()
	}
	if m.cost == 0 {
		m.cost = bcrypt.DefaultCost
	}
	return m
}

// SSOEnabled reports whether SSO fallback is on by default.
func (m *AccessManager) SSOEnabled() bool {
	return m.useSSO
}

// VerifyCredentials checks the pair locally and, when useSSO is set and the
// local check fails, against the SSO provider. A successful SSO login for an
// unknown user creates a local sso record so later logins stay local.
//
// Authentication failure is reported through ok and message; err is only set
// when the stores fail.
func (m *AccessManager) VerifyCredentials(ctx context.Context, username, password string, useSSO bool) (ok bool, message string, err error) {
	rec, exists := m.creds.Get(ctx, username)
	if exists && passwordMatches(rec.Password, password) {
		return true, "", nil
	}

	localMsg := MsgLocalUserNotFound
	if exists {
		localMsg = MsgPasswordMismatch
	}
	m.log.Info(ctx, "local auth failed", "username", username, "reason", localMsg, "try_sso", useSSO)
	if !useSSO {
		return false, localMsg, nil
	}
	// An empty password could not be folded back into a usable local record.
	if password == "" {
		return false, MsgEmptyPassword, nil
	}

	verifier, err := m.ssoClient(ctx)
	if err != nil {
		m.log.Error(ctx, "sso client unavailable", "error", err)
		return false, fmt.Sprintf(msgBothFailed, err.Error()), nil
	}

	// Never called with a store lock held.
	ssoOK, ssoMsg := verifier.Verify(ctx, username, password)
	m.log.Debug(ctx, "sso auth result", "username", username, "ok", ssoOK, "msg", ssoMsg)
	if !ssoOK {
		return false, fmt.Sprintf(msgBothFailed, ssoMsg), nil
	}

	if err := m.foldBackSSO(ctx, username, password); err != nil {
		return false, "", err
	}
	return true, "", nil
}

func (m *AccessManager) foldBackSSO(ctx context.Context, username, password string) error {
	if m.creds.Exists(ctx, username) {
		return nil
	}
	hash, err := m.hash(password)
	if err != nil {
		return err
	}
	created, err := m.creds.PutIfAbsent(ctx, username, domain.CredentialRecord{
		Password: hash,
		AuthType: domain.AuthSSO,
	})
	if err != nil {
		return fmt.Errorf("save sso user %q: %w", username, err)
	}
	if created {
		m.log.Info(ctx, "sso user saved locally", "username", username)
	}
	return nil
}

// ssoClient returns the cached client, building it on first use. A failed
// build is retried on the next call.
func (m *AccessManager) ssoClient(ctx context.Context) (domain.SSOVerifier, error) {
	m.ssoMu.Lock()
	defer m.ssoMu.Unlock()

	if m.sso != nil {
		return m.sso, nil
	}
	if m.ssoFactory == nil {
		return nil, fmt.Errorf("%w: no sso client configured", ErrSSOUnavailable)
	}
	v, err := m.ssoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSSOUnavailable, err)
	}
	m.sso = v
	return v, nil
}

func passwordMatches(stored *string, supplied string) bool {
	if stored == nil {
		return false
	}
	if _, err := bcrypt.Cost([]byte(*stored)); err == nil {
		return bcrypt.CompareHashAndPassword([]byte(*stored), []byte(supplied)) == nil
	}
	// Legacy plaintext entry.
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(supplied)) == 1
}

func (m *AccessManager) hash(password string) (*string, error) {
	if password == "" {
		return nil, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	s := string(h)
	return &s, nil
}

// PermissionLevel derives the user's tier from current store state.
func (m *AccessManager) PermissionLevel(ctx context.Context, username string) domain.Level {
	if username == PublicUser {
		return domain.LevelPublic
	}
	rec, ok := m.creds.Get(ctx, username)
	switch {
	case !ok:
		return domain.LevelNone
	case rec.IsAdmin:
		return domain.LevelAdmin
	case rec.IsPlus:
		return domain.LevelPlus
	case ssoUsersArePlus && rec.AuthType == domain.AuthSSO:
		return domain.LevelPlus
	case m.sessionHasAPIKey(ctx, username):
		return domain.LevelPlus
	}
	return domain.LevelUser
}

// PermissionLabel returns the display label of the user's tier.
func (m *AccessManager) PermissionLabel(ctx context.Context, username string) (string, error) {
	return m.PermissionLevel(ctx, username).Label()
}

func (m *AccessManager) sessionHasAPIKey(ctx context.Context, username string) bool {
	s, ok := m.sessions.Get(ctx, username)
	return ok && s.HasAPIKey()
}

// RegisterUser creates or overwrites the user's credential record. extra may
// set auth_type, is_admin, is_plus and any profile field; it may not carry a
// password. An empty password stores none.
func (m *AccessManager) RegisterUser(ctx context.Context, username, password string, extra map[string]any) error {
	rec, err := m.newRecord(username, password, extra)
	if err != nil {
		return err
	}
	if err := m.creds.Put(ctx, username, rec); err != nil {
		return fmt.Errorf("register %q: %w", username, err)
	}
	m.log.Info(ctx, "user registered", "username", username, "auth_type", string(rec.AuthType))
	return nil
}

// CreateUser is RegisterUser that refuses to overwrite: an existing username
// fails with ErrAlreadyExists.
func (m *AccessManager) CreateUser(ctx context.Context, username, password string, extra map[string]any) error {
	if m.creds.Exists(ctx, username) {
		return fmt.Errorf("user %q: %w", username, domain.ErrAlreadyExists)
	}
	rec, err := m.newRecord(username, password, extra)
	if err != nil {
		return err
	}
	created, err := m.creds.PutIfAbsent(ctx, username, rec)
	if err != nil {
		return fmt.Errorf("create %q: %w", username, err)
	}
	if !created {
		return fmt.Errorf("user %q: %w", username, domain.ErrAlreadyExists)
	}
	m.log.Info(ctx, "user created", "username", username, "auth_type", string(rec.AuthType))
	return nil
}

func (m *AccessManager) newRecord(username, password string, extra map[string]any) (domain.CredentialRecord, error) {
	if username == "" {
		return domain.CredentialRecord{}, fmt.Errorf("username: %w", domain.ErrInvalidField)
	}
	if _, ok := extra["password"]; ok {
		return domain.CredentialRecord{}, fmt.Errorf("password in extra fields: %w", domain.ErrReservedField)
	}

	fields := map[string]any{"auth_type": domain.AuthLocal}
	for k, v := range extra {
		fields[k] = v
	}
	rec, err := recordFromFields(fields)
	if err != nil {
		return domain.CredentialRecord{}, err
	}
	if rec.Password, err = m.hash(password); err != nil {
		return domain.CredentialRecord{}, err
	}
	return rec, nil
}

func recordFromFields(fields map[string]any) (domain.CredentialRecord, error) {
	var rec domain.CredentialRecord
	data, err := json.Marshal(fields)
	if err != nil {
		return rec, fmt.Errorf("encode fields: %w: %v", domain.ErrInvalidField, err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		if errors.Is(err, domain.ErrInvalidField) {
			return rec, err
		}
		return rec, fmt.Errorf("decode fields: %w: %v", domain.ErrInvalidField, err)
	}
	return rec, nil
}

// RemoveUser deletes the credential record. Session data is kept.
func (m *AccessManager) RemoveUser(ctx context.Context, username string) error {
	if err := m.creds.Remove(ctx, username); err != nil {
		return err
	}
	m.log.Info(ctx, "user removed", "username", username)
	return nil
}

// UserExists reports whether the user has a credential record.
func (m *AccessManager) UserExists(ctx context.Context, username string) bool {
	return m.creds.Exists(ctx, username)
}

// IsAdmin reports the admin flag.
func (m *AccessManager) IsAdmin(ctx context.Context, username string) bool {
	rec, ok := m.creds.Get(ctx, username)
	return ok && rec.IsAdmin
}

// IsPlus reports the plus flag. Admins are always plus.
func (m *AccessManager) IsPlus(ctx context.Context, username string) bool {
	rec, ok := m.creds.Get(ctx, username)
	return ok && (rec.IsAdmin || rec.IsPlus)
}

// IsSSOUser reports whether the user authenticated through SSO.
func (m *AccessManager) IsSSOUser(ctx context.Context, username string) bool {
	rec, ok := m.creds.Get(ctx, username)
	return ok && rec.AuthType == domain.AuthSSO
}

// HasOwnAPIKey reports whether a registered user stored an API key.
func (m *AccessManager) HasOwnAPIKey(ctx context.Context, username string) bool {
	return m.creds.Exists(ctx, username) && m.sessionHasAPIKey(ctx, username)
}

// CredentialRecord returns a copy of the user's record, or ErrNotFound.
func (m *AccessManager) CredentialRecord(ctx context.Context, username string) (*domain.CredentialRecord, error) {
	rec, ok := m.creds.Get(ctx, username)
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	return rec, nil
}

// Session returns a copy of the user's session record.
func (m *AccessManager) Session(ctx context.Context, username string) (*domain.SessionRecord, bool) {
	return m.sessions.Get(ctx, username)
}

// WriteCookie merges fields into the session of a registered user.
func (m *AccessManager) WriteCookie(ctx context.Context, username string, fields map[string]any) error {
	if !m.creds.Exists(ctx, username) {
		return fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	if err := m.sessions.MergeFields(ctx, username, fields); err != nil {
		return err
	}
	m.log.Debug(ctx, "cookie written", "username", username, "fields", fieldNames(fields))
	return nil
}

func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	return names
}

// RecordHistoryEntry appends data to a conversation. Guests may record
// history, so the user need not be registered.
func (m *AccessManager) RecordHistoryEntry(ctx context.Context, username, conversationID string, data map[string]any) (domain.HistoryEntry, error) {
	if username == "" || conversationID == "" {
		return domain.HistoryEntry{}, fmt.Errorf("username and conversation id: %w", domain.ErrInvalidField)
	}
	return m.sessions.AppendHistory(ctx, username, conversationID, data)
}

// SessionGenerationKey is the session field holding the user's token
// generation. Session tokens minted for an older generation are rejected.
const SessionGenerationKey = "session_gen"

// SessionGeneration returns the user's current token generation, zero when
// none was recorded.
func (m *AccessManager) SessionGeneration(ctx context.Context, username string) int64 {
	sess, ok := m.sessions.Get(ctx, username)
	if !ok {
		return 0
	}
	return intValue(sess.Fields[SessionGenerationKey], 0)
}

// RevokeSessions advances the user's token generation so every session token
// issued before the call stops resolving.
func (m *AccessManager) RevokeSessions(ctx context.Context, username string) error {
	next := m.SessionGeneration(ctx, username) + 1
	if err := m.WriteCookie(ctx, username, map[string]any{SessionGenerationKey: next}); err != nil {
		return err
	}
	m.log.Info(ctx, "sessions revoked", "username", username, "generation", next)
	return nil
}

// RateLimitCheck applies the fixed guest policy: anonymous, public and
// unregistered callers are limited, everyone else is not.
func (m *AccessManager) RateLimitCheck(ctx context.Context, username string) (limited bool, message string) {
	if username == "" || username == PublicUser || !m.creds.Exists(ctx, username) {
		return true, MsgPublicRateLimited
	}
	return false, ""
}
