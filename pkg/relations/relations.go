// Package relations computes follow-graph differences. Handles are compared
// case-insensitively; input order is preserved and duplicates are kept.
package relations

import "bskyfollow/pkg/models"

// NotFollowingBack returns the accounts in follows whose handle does not
// appear among followers.
func NotFollowingBack(follows, followers []models.Account) []models.Account {
	return difference(follows, followers)
}

// FollowersNotFollowedBack returns the accounts in followers whose handle
// does not appear among follows.
func FollowersNotFollowedBack(follows, followers []models.Account) []models.Account {
	return difference(followers, follows)
}

func difference(from, exclude []models.Account) []models.Account {
	seen := make(map[string]struct{}, len(exclude))
	for _, a := range exclude {
		seen[models.HandleKey(a.Handle)] = struct{}{}
	}

	out := make([]models.Account, 0, len(from))
	for _, a := range from {
		if _, ok := seen[models.HandleKey(a.Handle)]; !ok {
			out = append(out, a)
		}
	}
	return out
}

// Counts summarizes a loaded relationship snapshot.
type Counts struct {
	Follows                  int `json:"follows"`
	Followers                int `json:"followers"`
	NotFollowingBack         int `json:"notFollowingBack"`
	FollowersNotFollowedBack int `json:"followersNotFollowedBack"`
	Mutuals                  int `json:"mutuals"`
}

// Summarize computes Counts for follows and followers.
func Summarize(follows, followers []models.Account) Counts {
	nfb := len(NotFollowingBack(follows, followers))
	return Counts{
		Follows:                  len(follows),
		Followers:                len(followers),
		NotFollowingBack:         nfb,
		FollowersNotFollowedBack: len(FollowersNotFollowedBack(follows, followers)),
		Mutuals:                  len(follows) - nfb,
	}
}
