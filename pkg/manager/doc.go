// Package manager ties a Bluesky session to a relationship snapshot and the
// bulk write operations that act on it.
//
// A Manager is created over a BlueskyClient. After Login and Load it holds
// two computed sets: NonFollowBacks (followed accounts that do not follow
// back) and Fans (followers that are not followed back). Bulk operations
// take a Selection of indices into one of those sets:
//
//	m := manager.New(client, cfg, manager.WithWhitelist(manager.NonFollowBacks, wl))
//	if _, err := m.Login(ctx, identifier, appPassword); err != nil {
//	    return err
//	}
//	if _, err := m.Load(ctx); err != nil {
//	    return err
//	}
//	result, err := m.Unfollow(ctx, m.DefaultSelection(manager.NonFollowBacks), reporter)
//
// Only one bulk operation runs at a time; a second one fails with
// ErrRunInProgress. The snapshot is reloaded after any run with at least
// one successful write.
package manager
