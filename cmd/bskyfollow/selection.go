package main

import (
	"fmt"
	"strings"

	"bskyfollow/pkg/bsky"
	"bskyfollow/pkg/manager"
	"bskyfollow/pkg/models"
)

// parseSet maps a --set value to a manager set
func parseSet(name string) (manager.Set, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "non-followers", "non-follow-backs", "nonfollowers", "unfollow":
		return manager.NonFollowBacks, nil
	case "fans", "follow":
		return manager.Fans, nil
	default:
		return 0, fmt.Errorf("unknown set %q (want non-followers or fans)", name)
	}
}

// buildSelection starts from the default selection (everything not
// whitelisted), narrows it to only when given, then truncates to limit.
// Handles in only bypass the whitelist, so they can be targeted explicitly.
func buildSelection(accounts []models.Account, def *models.Selection, only []string, limit int) (*models.Selection, []string) {
	sel := def
	var missing []string

	if len(only) > 0 {
		byHandle := make(map[string]int, len(accounts))
		for i, a := range accounts {
			byHandle[models.HandleKey(a.Handle)] = i
		}

		sel = models.NewSelection()
		for _, h := range only {
			i, ok := byHandle[models.HandleKey(bsky.NormalizeHandle(h))]
			if !ok {
				missing = append(missing, h)
				continue
			}
			sel.Add(i)
		}
	}

	sel.Limit(limit)
	return sel, missing
}

// previewHandles lists up to n selected handles
func previewHandles(accounts []models.Account, sel *models.Selection, n int) string {
	indices := sel.Indices()
	var handles []string
	for _, i := range indices {
		if len(handles) == n {
			break
		}
		if i >= 0 && i < len(accounts) {
			handles = append(handles, "@"+accounts[i].Handle)
		}
	}
	out := strings.Join(handles, ", ")
	if len(indices) > n {
		out += fmt.Sprintf(" and %d more", len(indices)-n)
	}
	return out
}
