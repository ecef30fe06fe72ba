package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPage struct {
	result interface{}
	err    error
}

func (p stubPage) Eval(_ context.Context, js string, out interface{}) error {
	if p.err != nil {
		return p.err
	}
	raw, _ := json.Marshal(p.result)
	return json.Unmarshal(raw, out)
}

func TestGetUserIdentity(t *testing.T) {
	b := New(stubPage{result: map[string]interface{}{
		"success": true,
		"userId":  "12345",
		"email":   "creator@example.com",
		"name":    "creator",
	}})

	identity := b.GetUserIdentity(context.Background())
	require.True(t, identity.Success)
	assert.Equal(t, "12345", identity.UserID)
	assert.Equal(t, "creator@example.com", identity.Email)
	assert.Equal(t, "creator", identity.Name)
}

func TestGetUserIdentityNotLoggedIn(t *testing.T) {
	b := New(stubPage{result: map[string]interface{}{"success": false}})

	identity := b.GetUserIdentity(context.Background())
	assert.False(t, identity.Success)
	assert.Equal(t, "User not logged in or user data not accessible", identity.Error)
}

func TestGetUserIdentityProbeError(t *testing.T) {
	b := New(stubPage{err: assert.AnError})

	identity := b.GetUserIdentity(context.Background())
	assert.False(t, identity.Success)
	assert.NotEmpty(t, identity.Error)
}

func TestGetUserIdentityNoTabAttached(t *testing.T) {
	b := New(NewDevtoolsPage(nil))

	identity := b.GetUserIdentity(context.Background())
	assert.False(t, identity.Success)
}
