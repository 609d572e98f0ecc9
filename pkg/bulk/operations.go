package bulk

import (
	"context"

	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/models"
)

// FollowAPI creates follow records.
type FollowAPI interface {
	Follow(ctx context.Context, did string) (string, error)
}

// UnfollowAPI deletes follow records.
type UnfollowAPI interface {
	Unfollow(ctx context.Context, followURI string) error
}

// FollowOperation follows each target by DID.
func FollowOperation(api FollowAPI, limits Limits, log logger.Logger) Operation {
	return Operation{
		Name:   "follow",
		Limits: limits,
		Ready:  func(a models.Account) bool { return a.DID != "" },
		Write: func(ctx context.Context, a models.Account) bool {
			if _, err := api.Follow(ctx, a.DID); err != nil {
				log.WithError(err).WithField("handle", a.Handle).Warn("Follow failed")
				return false
			}
			return true
		},
	}
}

// UnfollowOperation removes the viewer's follow record of each target.
// Targets without a parseable follow URI are not ready.
func UnfollowOperation(api UnfollowAPI, limits Limits, log logger.Logger) Operation {
	return Operation{
		Name:   "unfollow",
		Limits: limits,
		Ready: func(a models.Account) bool {
			_, err := models.ParseATURI(a.FollowURI)
			return a.DID != "" && err == nil
		},
		Write: func(ctx context.Context, a models.Account) bool {
			if err := api.Unfollow(ctx, a.FollowURI); err != nil {
				log.WithError(err).WithField("handle", a.Handle).Warn("Unfollow failed")
				return false
			}
			return true
		},
	}
}
