package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRecord_UnmarshalKeepsProfile(t *testing.T) {
	raw := `{
		"password": "pw1",
		"auth_type": "sso",
		"is_admin": true,
		"phone": "13112345678",
		"usage": 5,
		"group": ["a", "b"]
	}`

	var rec CredentialRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))

	require.NotNil(t, rec.Password)
	assert.Equal(t, "pw1", *rec.Password)
	assert.Equal(t, AuthSSO, rec.AuthType)
	assert.True(t, rec.IsAdmin)
	assert.False(t, rec.IsPlus)
	assert.Equal(t, "13112345678", rec.Profile["phone"])
	assert.Equal(t, json.Number("5"), rec.Profile["usage"])
	assert.Equal(t, []any{"a", "b"}, rec.Profile["group"])
	assert.NotContains(t, rec.Profile, "password")
	assert.NotContains(t, rec.Profile, "auth_type")
}

func TestCredentialRecord_DefaultsAuthTypeToLocal(t *testing.T) {
	var rec CredentialRecord
	require.NoError(t, json.Unmarshal([]byte(`{"password": null}`), &rec))

	assert.Nil(t, rec.Password)
	assert.Equal(t, AuthLocal, rec.AuthType)
	assert.Nil(t, rec.Profile)
}

func TestCredentialRecord_RejectsUnknownAuthType(t *testing.T) {
	var rec CredentialRecord
	err := json.Unmarshal([]byte(`{"auth_type": "ldap"}`), &rec)
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestCredentialRecord_MarshalFlattens(t *testing.T) {
	pw := "secret"
	rec := CredentialRecord{
		Password: &pw,
		IsPlus:   true,
		Profile:  map[string]any{"email": "a@example.com", "is_plus": "ignored"},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "secret", m["password"])
	assert.Equal(t, "local", m["auth_type"])
	assert.Equal(t, true, m["is_plus"])
	assert.Equal(t, false, m["is_admin"])
	assert.Equal(t, "a@example.com", m["email"])
}

func TestCredentialRecord_CloneIsDeep(t *testing.T) {
	pw := "pw"
	rec := CredentialRecord{
		Password: &pw,
		Profile:  map[string]any{"group": []any{"x"}, "meta": map[string]any{"k": "v"}},
	}

	c := rec.Clone()
	*c.Password = "changed"
	c.Profile["group"].([]any)[0] = "y"
	c.Profile["meta"].(map[string]any)["k"] = "w"

	assert.Equal(t, "pw", *rec.Password)
	assert.Equal(t, "x", rec.Profile["group"].([]any)[0])
	assert.Equal(t, "v", rec.Profile["meta"].(map[string]any)["k"])
}

func TestCredentialRecord_Normalize(t *testing.T) {
	rec := CredentialRecord{Profile: map[string]any{"usage": 3, "limit": 2.5}}

	n, err := rec.Normalize()
	require.NoError(t, err)
	assert.Equal(t, AuthLocal, n.AuthType)
	assert.Equal(t, json.Number("3"), n.Profile["usage"])
	assert.Equal(t, json.Number("2.5"), n.Profile["limit"])

	_, err = CredentialRecord{Profile: map[string]any{"bad": make(chan int)}}.Normalize()
	assert.Error(t, err)
}
