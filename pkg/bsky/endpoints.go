package bsky

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultService is the PDS entryway used when none is configured
	DefaultService = "https://bsky.social"

	// DefaultAppURL is the web app used for profile and list links
	DefaultAppURL = "https://bsky.app"

	// PageLimit is the page size requested from graph listing endpoints
	PageLimit = 100
)

// XRPC method identifiers
const (
	NSIDCreateSession  = "com.atproto.server.createSession"
	NSIDRefreshSession = "com.atproto.server.refreshSession"
	NSIDCreateRecord   = "com.atproto.repo.createRecord"
	NSIDDeleteRecord   = "com.atproto.repo.deleteRecord"
	NSIDGetFollows     = "app.bsky.graph.getFollows"
	NSIDGetFollowers   = "app.bsky.graph.getFollowers"
	NSIDGetProfile     = "app.bsky.actor.getProfile"
)

// Record collections
const (
	CollectionFollow   = "app.bsky.graph.follow"
	CollectionList     = "app.bsky.graph.list"
	CollectionListItem = "app.bsky.graph.listitem"

	// ListPurposeCurate marks a list as a curation list rather than a moderation list
	ListPurposeCurate = "app.bsky.graph.defs#curatelist"
)

// createdAtLayout matches the millisecond UTC timestamps the app writes
const createdAtLayout = "2006-01-02T15:04:05.000Z"

// XRPCURL constructs the URL for an XRPC method on service
func XRPCURL(service, nsid string, params url.Values) string {
	u := strings.TrimRight(service, "/") + "/xrpc/" + nsid
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// pageParams builds the query for one page of a graph listing
func pageParams(actor, cursor string) url.Values {
	params := url.Values{}
	params.Set("actor", actor)
	params.Set("limit", strconv.Itoa(PageLimit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return params
}

// ProfileURL returns the public web profile link for a handle
func ProfileURL(appURL, handle string) string {
	handle = NormalizeHandle(handle)
	if handle == "" {
		return ""
	}
	if appURL == "" {
		appURL = DefaultAppURL
	}
	return strings.TrimRight(appURL, "/") + "/profile/" + handle
}

// NormalizeHandle strips a leading @, surrounding whitespace and trailing
// slashes from user input.
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return strings.TrimRight(handle, "/ ")
}

// IsValidHandle reports whether handle looks like a domain handle
// (at least two labels of letters, digits and hyphens).
func IsValidHandle(handle string) bool {
	if handle == "" || len(handle) > 253 {
		return false
	}
	labels := strings.Split(handle, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-') {
				return false
			}
		}
	}
	return true
}
