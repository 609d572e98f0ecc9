package models

import "strings"

// Account is one entity of the social graph as seen by the logged-in user.
type Account struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	// FollowURI is the AT-URI of the viewer's follow record for this
	// account. Empty when the viewer does not follow it.
	FollowURI string `json:"followUri,omitempty"`

	FollowsCount   int  `json:"followsCount,omitempty"`
	FollowersCount int  `json:"followersCount,omitempty"`
	PostsCount     int  `json:"postsCount,omitempty"`
	Enriched       bool `json:"enriched,omitempty"`
}

// Name returns the display name, falling back to the handle.
func (a Account) Name() string {
	if strings.TrimSpace(a.DisplayName) != "" {
		return a.DisplayName
	}
	return a.Handle
}

// HandleKey is the case-insensitive comparison key for a handle.
func HandleKey(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// RunResult aggregates one bulk run.
type RunResult struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Attempted is Successful plus Failed.
func (r RunResult) Attempted() int {
	return r.Successful + r.Failed
}

// ListResult is the outcome of building a curation list.
type ListResult struct {
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	ListURI    string `json:"listUri"`
	ListURL    string `json:"listUrl"`
}
