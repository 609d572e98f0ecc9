package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bskyfollow/pkg/manager"
	"bskyfollow/pkg/models"
)

func testAccounts() []models.Account {
	return []models.Account{
		{DID: "did:plc:a", Handle: "alice.test"},
		{DID: "did:plc:b", Handle: "Bob.test"},
		{DID: "did:plc:c", Handle: "carol.test"},
		{DID: "did:plc:d", Handle: "dave.test"},
	}
}

func TestParseSet(t *testing.T) {
	tests := []struct {
		in   string
		want manager.Set
	}{
		{"non-followers", manager.NonFollowBacks},
		{"Non-Follow-Backs", manager.NonFollowBacks},
		{"fans", manager.Fans},
		{" follow ", manager.Fans},
	}
	for _, tt := range tests {
		got, err := parseSet(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseSet("mutuals")
	assert.Error(t, err)
}

func TestBuildSelectionDefault(t *testing.T) {
	accounts := testAccounts()
	def := models.NewSelection(0, 2, 3)

	sel, missing := buildSelection(accounts, def, nil, 2)

	assert.Empty(t, missing)
	assert.Equal(t, []int{0, 2}, sel.Indices())
}

func TestBuildSelectionOnly(t *testing.T) {
	accounts := testAccounts()
	def := models.NewSelection(0)

	sel, missing := buildSelection(accounts, def, []string{"@bob.TEST", "zed.test", "dave.test"}, 0)

	assert.Equal(t, []string{"zed.test"}, missing)
	assert.Equal(t, []int{1, 3}, sel.Indices(), "only bypasses the default selection")
}

func TestPreviewHandles(t *testing.T) {
	accounts := testAccounts()

	assert.Equal(t, "@alice.test, @Bob.test and 2 more", previewHandles(accounts, models.NewSelection(0, 1, 2, 3), 2))
	assert.Equal(t, "@carol.test", previewHandles(accounts, models.NewSelection(2), 5))
	assert.Equal(t, "", previewHandles(accounts, models.NewSelection(), 5))
}

func TestParseScope(t *testing.T) {
	for _, name := range []string{"unfollow", "follow"} {
		scope, err := parseScope(name)
		require.NoError(t, err)
		assert.Equal(t, name, string(scope))
	}
	_, err := parseScope("fans")
	assert.Error(t, err)
}

func TestAccountTable(t *testing.T) {
	accounts := testAccounts()
	accounts[0].Enriched = true
	accounts[0].FollowersCount = 1234

	out := accountTable(accounts, models.NewSelection(0, 2, 3), 3)

	assert.Contains(t, out, "@alice.test")
	assert.Contains(t, out, "1234")
	assert.Contains(t, out, "whitelisted", "Bob is outside the default selection")
	assert.NotContains(t, out, "@dave.test")
	assert.Contains(t, out, "and 1 more")
}
