package bulk

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "bskyfollow/pkg/errors"
	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListAPI struct {
	createErr   error
	failMembers map[string]bool
	name        string
	description string
	added       []string
}

func (f *fakeListAPI) CreateList(_ context.Context, name, description string) (string, error) {
	f.name, f.description = name, description
	if f.createErr != nil {
		return "", f.createErr
	}
	return "at://did:plc:me/app.bsky.graph.list/3klist", nil
}

func (f *fakeListAPI) AddListItem(_ context.Context, listURI, did string) error {
	f.added = append(f.added, did)
	if f.failMembers[did] {
		return errors.New("upstream rejected")
	}
	return nil
}

func newTestBuilder(api ListAPI, clock ratelimit.Clock) *ListBuilder {
	return NewListBuilder(api, ListConfig{ItemDelay: 25 * time.Millisecond, OwnerHandle: "me.bsky.social"},
		WithClock(clock), WithLogger(logger.NewNopLogger()))
}

func TestListBuild(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	api := &fakeListAPI{failMembers: map[string]bool{"did:plc:user1.bsky.social": true}}
	targets := makeTargets(4)
	targets[3].DID = ""
	rec := &Recorder{}

	res, err := newTestBuilder(api, clock).Build(context.Background(), targets, models.SelectAll(4), ListNonFollowers, rec)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, &models.ListResult{
		Successful: 2,
		Failed:     2,
		ListURI:    "at://did:plc:me/app.bsky.graph.list/3klist",
		ListURL:    "https://bsky.app/profile/me.bsky.social/lists/3klist",
	}, res)
	assert.Equal(t, "Non-followers 2024-03-01", api.name)
	assert.Equal(t, "Accounts that don't follow me back (as of 2024-03-01)", api.description)
	assert.Len(t, api.added, 3, "the account without a DID is never sent")
	assert.Equal(t, []int{25, 50, 75, 100}, rec.Percents())
	assert.Equal(t, 75*time.Millisecond, clock.Now().Sub(epoch))
	assert.Empty(t, rec.Events(EventMinuteLimit, EventCountdownSeconds), "member adds are not bucketed")
}

func TestListBuildCreateFailure(t *testing.T) {
	api := &fakeListAPI{createErr: errors.New("401 unauthorized")}

	res, err := newTestBuilder(api, ratelimit.NewAutoClock(epoch)).Build(context.Background(), makeTargets(3), models.SelectAll(3), ListFans, nil)

	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrListCreate)
	assert.Contains(t, err.Error(), "401 unauthorized")
	assert.Empty(t, api.added)
	assert.Equal(t, "Followers I Don't Follow 2024-03-01", api.name)
}

func TestListBuildEmptySelection(t *testing.T) {
	api := &fakeListAPI{}
	res, err := newTestBuilder(api, ratelimit.NewAutoClock(epoch)).Build(context.Background(), makeTargets(3), models.NewSelection(), ListFans, nil)

	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, api.name, "no list is created for an empty selection")
}

func TestListBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api := &fakeListAPI{}
	rep := ReporterFuncs{OnProgress: func(p int) {
		if p >= 50 {
			cancel()
		}
	}}

	res, err := newTestBuilder(api, ratelimit.NewAutoClock(epoch)).Build(ctx, makeTargets(4), models.SelectAll(4), ListNonFollowers, rep)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Successful)
	assert.NotEmpty(t, res.ListURL)
}

func TestListKindText(t *testing.T) {
	day := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "Followers I Don't Follow 2025-12-31", ListFans.Title(day))
	assert.Equal(t, "Accounts that follow me but I don't follow back (as of 2025-12-31)", ListFans.Description(day))
}

func TestListURL(t *testing.T) {
	assert.Equal(t, "https://bsky.app/profile/a.b/lists/xyz", ListURL("https://bsky.app/", "a.b", "at://did:plc:x/app.bsky.graph.list/xyz"))
	assert.Empty(t, ListURL("https://bsky.app", "a.b", "not-a-uri"))
}
