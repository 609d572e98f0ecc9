package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountName(t *testing.T) {
	assert.Equal(t, "Alice", Account{Handle: "alice.bsky.social", DisplayName: "Alice"}.Name())
	assert.Equal(t, "bob.bsky.social", Account{Handle: "bob.bsky.social", DisplayName: "  "}.Name())
}

func TestHandleKey(t *testing.T) {
	assert.Equal(t, "alice.bsky.social", HandleKey(" Alice.Bsky.Social "))
}

func TestSelectionOrderAndDedup(t *testing.T) {
	s := NewSelection(3, 1, 3, 2)
	assert.Equal(t, []int{3, 1, 2}, s.Indices())
	assert.Equal(t, 3, s.Len())

	s.Remove(1)
	s.Remove(42)
	assert.Equal(t, []int{3, 2}, s.Indices())

	s.Toggle(2)
	s.Toggle(7)
	assert.Equal(t, []int{3, 7}, s.Indices())
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(2))
}

func TestSelectionIndicesIsSnapshot(t *testing.T) {
	s := SelectAll(3)
	snap := s.Indices()

	s.Remove(0)
	s.Add(9)
	snap[1] = 100

	assert.Equal(t, []int{0, 100, 2}, snap)
	assert.Equal(t, []int{1, 2, 9}, s.Indices())
}

func TestSelectExcept(t *testing.T) {
	accounts := []Account{{Handle: "a"}, {Handle: "keep"}, {Handle: "c"}}
	s := SelectExcept(accounts, func(a Account) bool { return a.Handle == "keep" })
	assert.Equal(t, []int{0, 2}, s.Indices())

	assert.Equal(t, []int{0, 1, 2}, SelectExcept(accounts, nil).Indices())
}

func TestSelectionLimitAndClear(t *testing.T) {
	s := SelectAll(5)
	s.Limit(2)
	assert.Equal(t, []int{0, 1}, s.Indices())
	assert.False(t, s.Has(4))

	s.Add(4)
	assert.Equal(t, []int{0, 1, 4}, s.Indices())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	s.Add(1)
	assert.Equal(t, []int{1}, s.Indices())
}

func TestNilSelection(t *testing.T) {
	var s *Selection
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Indices())
	assert.False(t, s.Has(0))
}

func TestRunResultAttempted(t *testing.T) {
	assert.Equal(t, 5, RunResult{Successful: 3, Failed: 2}.Attempted())
}

func TestParseATURI(t *testing.T) {
	u, err := ParseATURI("at://did:plc:abc/app.bsky.graph.follow/3kxyz")
	assert.NoError(t, err)
	assert.Equal(t, ATURI{Authority: "did:plc:abc", Collection: "app.bsky.graph.follow", RKey: "3kxyz"}, u)
	assert.Equal(t, "at://did:plc:abc/app.bsky.graph.follow/3kxyz", u.String())

	for _, bad := range []string{"", "https://bsky.app/x", "at://did:plc:abc", "at://did:plc:abc/app.bsky.graph.follow/", "at://a/b/c/d"} {
		_, err := ParseATURI(bad)
		assert.Error(t, err, bad)
	}
}
