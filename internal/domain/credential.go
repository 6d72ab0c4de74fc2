package domain

import (
	"encoding/json"
	"fmt"
)

// AuthType records how a user first proved their identity.
type AuthType string

const (
	AuthLocal AuthType = "local"
	AuthSSO   AuthType = "sso"
)

// Valid reports whether t is a known auth type.
func (t AuthType) Valid() bool {
	return t == AuthLocal || t == AuthSSO
}

// Profile keys with a fixed meaning in the display projection.
const (
	ProfilePhone         = "phone"
	ProfilePhoneVerified = "phone_verified"
	ProfileEmail         = "email"
	ProfileUserType      = "user_type"
	ProfileGroup         = "group"
	ProfileOwnGroup      = "own_group"
	ProfileGroupMembers  = "group_members"
	ProfileUsage         = "usage"
	ProfileLimit         = "limit"
)

var credentialKeys = []string{"password", "auth_type", "is_admin", "is_plus"}

// CredentialRecord is the durable per-user authentication and profile data.
// Password is nil for SSO accounts that never logged in. Profile carries the
// free-form fields (phone, email, group, ...) exactly as persisted.
type CredentialRecord struct {
	Password *string
	AuthType AuthType
	IsAdmin  bool
	IsPlus   bool
	Profile  map[string]any
}

// MarshalJSON flattens the profile fields next to the typed ones.
func (r CredentialRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Profile)+len(credentialKeys))
	for k, v := range r.Profile {
		out[k] = v
	}
	authType := r.AuthType
	if authType == "" {
		authType = AuthLocal
	}
	out["password"] = r.Password
	out["auth_type"] = authType
	out["is_admin"] = r.IsAdmin
	out["is_plus"] = r.IsPlus
	return json.Marshal(out)
}

// UnmarshalJSON reads the typed fields and keeps every other key in Profile.
func (r *CredentialRecord) UnmarshalJSON(data []byte) error {
	var known struct {
		Password *string  `json:"password"`
		AuthType AuthType `json:"auth_type"`
		IsAdmin  bool     `json:"is_admin"`
		IsPlus   bool     `json:"is_plus"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	all, err := decodeObject(data)
	if err != nil {
		return err
	}
	if known.AuthType == "" {
		known.AuthType = AuthLocal
	}
	if !known.AuthType.Valid() {
		return fmt.Errorf("auth_type %q: %w", known.AuthType, ErrInvalidField)
	}
	*r = CredentialRecord{
		Password: known.Password,
		AuthType: known.AuthType,
		IsAdmin:  known.IsAdmin,
		IsPlus:   known.IsPlus,
		Profile:  withoutKeys(all, credentialKeys...),
	}
	return nil
}

// Clone returns a deep copy of r.
func (r CredentialRecord) Clone() CredentialRecord {
	c := r
	if r.Password != nil {
		p := *r.Password
		c.Password = &p
	}
	c.Profile = copyFields(r.Profile)
	return c
}

// Normalize returns r as it will read back after being persisted.
func (r CredentialRecord) Normalize() (CredentialRecord, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return CredentialRecord{}, err
	}
	var out CredentialRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return CredentialRecord{}, err
	}
	return out, nil
}

// ProfileView is the presentation-safe projection of a credential record.
// It never carries the password.
type ProfileView struct {
	Username      string  `json:"username"`
	Phone         *string `json:"phone"`
	PhoneVerified bool    `json:"phone_verified"`
	Email         *string `json:"email"`
	UserType      string  `json:"user_type"`
	Usage         int64   `json:"usage"`
	Limit         int64   `json:"limit"`
	Group         string  `json:"group"`
	OwnGroup      *string `json:"own_group"`
	GroupMembers  any     `json:"group_members"`
}
