package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSubsetPasswordTriState(t *testing.T) {
	var absent, cleared, set UserSubset
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"password": null}`), &cleared))
	require.NoError(t, json.Unmarshal([]byte(`{"password": "hunter2"}`), &set))

	assert.Nil(t, absent.Password)
	require.NotNil(t, cleared.Password)
	assert.Nil(t, cleared.Password.Value)
	require.NotNil(t, set.Password)
	require.NotNil(t, set.Password.Value)
	assert.Equal(t, "hunter2", *set.Password.Value)
}

func TestUserSubsetKnownFields(t *testing.T) {
	var u UserSubset
	require.NoError(t, json.Unmarshal([]byte(`{
		"username": "alice",
		"preferences": {"theme": "dark"},
		"permissions": {"viewVideo": true},
		"disabled": false
	}`), &u))

	require.NotNil(t, u.Username)
	assert.Equal(t, "alice", *u.Username)
	require.NotNil(t, u.Preferences)
	assert.Equal(t, "dark", (*u.Preferences)["theme"])
	require.NotNil(t, u.Permissions)
	assert.Equal(t, PermViewVideo, *u.Permissions)
	require.NotNil(t, u.Disabled)
	assert.False(t, *u.Disabled)
	assert.Empty(t, u.Unknown)
	assert.Equal(t, []string{"username", "preferences", "permissions", "disabled"}, u.Remaining())
}

func TestUserSubsetKeepsUnknownMembers(t *testing.T) {
	var u UserSubset
	require.NoError(t, json.Unmarshal([]byte(`{"username": "alice", "zz": 1, "email": "a@example.com"}`), &u))

	assert.False(t, u.IsEmpty())
	u.Username = nil
	assert.False(t, u.IsEmpty())
	assert.Equal(t, []string{"email", "zz"}, u.Remaining())
}

func TestUserSubsetRejectsBadTypes(t *testing.T) {
	var u UserSubset
	err := json.Unmarshal([]byte(`{"disabled": "yes"}`), &u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")

	err = json.Unmarshal([]byte(`{"permissions": {"fly": true}}`), &u)
	require.Error(t, err)
}

func TestUserSubsetEmpty(t *testing.T) {
	var nilSubset *UserSubset
	assert.True(t, nilSubset.IsEmpty())

	var u UserSubset
	require.NoError(t, json.Unmarshal([]byte(`null`), &u))
	assert.True(t, u.IsEmpty())
}

func TestPreferencesEqual(t *testing.T) {
	var decoded Preferences
	require.NoError(t, json.Unmarshal([]byte(`{"a": [1, 2], "b": {"c": true}}`), &decoded))
	var again Preferences
	require.NoError(t, json.Unmarshal([]byte(`{"b": {"c": true}, "a": [1, 2]}`), &again))

	assert.True(t, decoded.Equal(again))
	assert.True(t, Preferences(nil).Equal(Preferences{}))
	assert.False(t, decoded.Equal(Preferences{"a": 1.0}))
}

func TestUserChangeApply(t *testing.T) {
	u := User{ID: 3, Username: "alice", PasswordHash: []byte("h"), Permissions: PermViewVideo}
	change := u.Change()
	change.Username = "alicia"
	change.ClearPassword()
	change.Disabled = true

	got := change.Apply(u)
	assert.Equal(t, int32(3), got.ID)
	assert.Equal(t, "alicia", got.Username)
	assert.False(t, got.HasPassword())
	assert.True(t, got.Disabled)
	assert.Equal(t, PermViewVideo, got.Permissions)
	assert.False(t, change.IsAdd())
	assert.True(t, AddUser("bob").IsAdd())
}
