package models

import (
	"fmt"
	"strings"
)

// ATURI is a parsed at://authority/collection/rkey record reference.
type ATURI struct {
	Authority  string
	Collection string
	RKey       string
}

// ParseATURI parses a record AT-URI. The record key is the last path
// segment.
func ParseATURI(uri string) (ATURI, error) {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return ATURI{}, fmt.Errorf("not an at:// uri: %q", uri)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ATURI{}, fmt.Errorf("malformed record uri: %q", uri)
	}
	return ATURI{Authority: parts[0], Collection: parts[1], RKey: parts[2]}, nil
}

func (u ATURI) String() string {
	return "at://" + u.Authority + "/" + u.Collection + "/" + u.RKey
}
