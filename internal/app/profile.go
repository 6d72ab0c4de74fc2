package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chatgate/internal/domain"
)

const (
	defaultUserType = "free"
	adminUserType   = "admin"
	defaultLimit    = 10
	defaultSSOGroup = "ihep"
)

// DisplayProfile projects the credential record for presentation. Unknown
// users get the defaults.
func (m *AccessManager) DisplayProfile(ctx context.Context, username string) domain.ProfileView {
	var rec domain.CredentialRecord
	if r, ok := m.creds.Get(ctx, username); ok {
		rec = *r
	}
	p := rec.Profile

	view := domain.ProfileView{
		Username:      username,
		Phone:         stringPtr(p[domain.ProfilePhone]),
		PhoneVerified: boolValue(p[domain.ProfilePhoneVerified]),
		Email:         stringPtr(p[domain.ProfileEmail]),
		UserType:      defaultUserType,
		Usage:         intValue(p[domain.ProfileUsage], 0),
		Limit:         intValue(p[domain.ProfileLimit], defaultLimit),
		OwnGroup:      stringPtr(p[domain.ProfileOwnGroup]),
		GroupMembers:  p[domain.ProfileGroupMembers],
	}
	if s, ok := p[domain.ProfileUserType].(string); ok {
		view.UserType = s
	}
	if rec.IsAdmin {
		view.UserType = adminUserType
	}

	view.Group = groupString(p[domain.ProfileGroup], rec.AuthType)
	if view.OwnGroup != nil {
		view.Group = *view.OwnGroup + "(own), " + view.Group
	}
	return view
}

func groupString(v any, authType domain.AuthType) string {
	switch g := v.(type) {
	case nil:
		if authType == domain.AuthSSO {
			return defaultSSOGroup
		}
		return ""
	case string:
		return g
	case []any:
		parts := make([]string, len(g))
		for i, e := range g {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(g)
	}
}

func stringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

func intValue(v any, def int64) int64 {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return def
}
