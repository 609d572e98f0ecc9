package manager

import (
	"context"

	"bskyfollow/pkg/bsky"
	"bskyfollow/pkg/models"
)

// BlueskyClient defines the API operations the manager drives
type BlueskyClient interface {
	CreateSession(ctx context.Context, identifier, password string) (*bsky.Session, error)
	Session() *bsky.Session
	ClearSession()
	GetFollows(ctx context.Context, actor string) ([]models.Account, error)
	GetFollowers(ctx context.Context, actor string) ([]models.Account, error)
	GetProfile(ctx context.Context, actor string) (*models.Account, error)
	Follow(ctx context.Context, did string) (string, error)
	Unfollow(ctx context.Context, followURI string) error
	CreateList(ctx context.Context, name, description string) (string, error)
	AddListItem(ctx context.Context, listURI, did string) error
}

// Whitelist reports whether a handle is protected from bulk writes
type Whitelist interface {
	Contains(handle string) bool
}
