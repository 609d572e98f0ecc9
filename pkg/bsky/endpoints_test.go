package bsky

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXRPCURL(t *testing.T) {
	assert.Equal(t, "https://bsky.social/xrpc/app.bsky.actor.getProfile",
		XRPCURL("https://bsky.social/", NSIDGetProfile, nil))

	params := url.Values{}
	params.Set("actor", "alice.test")
	assert.Equal(t, "https://pds.example/xrpc/app.bsky.actor.getProfile?actor=alice.test",
		XRPCURL("https://pds.example", NSIDGetProfile, params))
}

func TestPageParams(t *testing.T) {
	first := pageParams("did:plc:me", "")
	assert.Equal(t, "100", first.Get("limit"))
	assert.False(t, first.Has("cursor"))

	next := pageParams("did:plc:me", "abc")
	assert.Equal(t, "abc", next.Get("cursor"))
}

func TestProfileURL(t *testing.T) {
	assert.Equal(t, "https://bsky.app/profile/alice.test", ProfileURL("", "@alice.test"))
	assert.Equal(t, "https://app.example/profile/bob.test", ProfileURL("https://app.example/", "bob.test"))
	assert.Empty(t, ProfileURL("", " "))
}

func TestNormalizeHandle(t *testing.T) {
	tests := map[string]string{
		"@alice.bsky.social": "alice.bsky.social",
		"  bob.test/ ":       "bob.test",
		"carol.example.com":  "carol.example.com",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHandle(in), "input %q", in)
	}
}

func TestIsValidHandle(t *testing.T) {
	valid := []string{"alice.bsky.social", "a-b.test", "x1.example.co.uk"}
	invalid := []string{"", "alice", "-bad.test", "bad-.test", "a..b", "under_score.test", "sp ace.test"}

	for _, h := range valid {
		assert.True(t, IsValidHandle(h), h)
	}
	for _, h := range invalid {
		assert.False(t, IsValidHandle(h), h)
	}
}
