package bulk

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "bskyfollow/pkg/errors"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/ratelimit"
)

// ListAPI creates curation lists and their members.
type ListAPI interface {
	CreateList(ctx context.Context, name, description string) (string, error)
	AddListItem(ctx context.Context, listURI, subjectDID string) error
}

// ListKind selects the generated list name and description.
type ListKind int

const (
	ListNonFollowers ListKind = iota
	ListFans
)

// Title returns the list name for the given date.
func (k ListKind) Title(date time.Time) string {
	d := date.Format("2006-01-02")
	if k == ListFans {
		return "Followers I Don't Follow " + d
	}
	return "Non-followers " + d
}

// Description returns the list description for the given date.
func (k ListKind) Description(date time.Time) string {
	d := date.Format("2006-01-02")
	if k == ListFans {
		return "Accounts that follow me but I don't follow back (as of " + d + ")"
	}
	return "Accounts that don't follow me back (as of " + d + ")"
}

// ListConfig holds what the builder needs besides the API.
type ListConfig struct {
	// ItemDelay is the flat pause after each member add
	ItemDelay   time.Duration
	AppURL      string
	OwnerHandle string
}

// ListBuilder creates a list and adds the selected accounts to it. Member
// adds are paced by a flat delay only; no quota buckets apply.
type ListBuilder struct {
	api  ListAPI
	cfg  ListConfig
	opts options
}

func NewListBuilder(api ListAPI, cfg ListConfig, opts ...Option) *ListBuilder {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if cfg.AppURL == "" {
		cfg.AppURL = "https://bsky.app"
	}
	return &ListBuilder{api: api, cfg: cfg, opts: o}
}

// ListURL returns the web address of listURI owned by handle.
func ListURL(appURL, handle, listURI string) string {
	u, err := models.ParseATURI(listURI)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s/profile/%s/lists/%s", strings.TrimRight(appURL, "/"), handle, u.RKey)
}

// Build creates a list of the given kind and adds every selected target.
// It returns nil and no error for an empty selection, and nil with an
// error wrapping ErrListCreate when the list cannot be created, in which
// case no members are added.
func (b *ListBuilder) Build(ctx context.Context, targets []models.Account, sel *models.Selection, kind ListKind, rep Reporter) (*models.ListResult, error) {
	indices := sel.Indices()
	total := len(indices)
	if total == 0 {
		return nil, nil
	}
	if rep == nil {
		rep = NopReporter
	}

	clock := b.opts.clock
	runID := b.opts.newID()
	log := b.opts.log.WithFields(map[string]interface{}{
		"run_id":    runID,
		"operation": "list",
	})
	emit := func(ev Event) {
		ev.RunID = runID
		ev.Operation = "list"
		if ev.Total == 0 {
			ev.Total = total
		}
		rep.Status(ev)
	}

	now := clock.Now()
	name := kind.Title(now)
	emit(Event{Kind: EventCreatingList, Name: name})

	listURI, err := b.api.CreateList(ctx, name, kind.Description(now))
	if err != nil {
		log.WithError(err).WithField("name", name).Error("List creation failed")
		return nil, fmt.Errorf("%w: %w", apperrors.ErrListCreate, err)
	}

	result := &models.ListResult{
		ListURI: listURI,
		ListURL: ListURL(b.cfg.AppURL, b.cfg.OwnerHandle, listURI),
	}
	log.InfoWithFields("List created", map[string]interface{}{
		"uri":     listURI,
		"members": total,
	})
	emit(Event{Kind: EventListCreated, Name: name})

	for i, idx := range indices {
		step := i + 1
		if idx < 0 || idx >= len(targets) || targets[idx].DID == "" {
			result.Failed++
			rep.Progress(percent(step, total))
			continue
		}
		target := targets[idx]

		emit(Event{Kind: EventAddingMember, Handle: target.Handle, Current: step})
		if err := b.api.AddListItem(ctx, listURI, target.DID); err != nil {
			log.WithError(err).WithField("handle", target.Handle).Warn("Adding list member failed")
			result.Failed++
		} else {
			result.Successful++
		}
		rep.Progress(percent(step, total))

		if err := ratelimit.Sleep(ctx, clock, b.cfg.ItemDelay); err != nil {
			emit(Event{Kind: EventCancelled, Result: models.RunResult{Successful: result.Successful, Failed: result.Failed}})
			return result, err
		}
	}

	emit(Event{Kind: EventFinished, Result: models.RunResult{Successful: result.Successful, Failed: result.Failed}})
	log.InfoWithFields("List build finished", map[string]interface{}{
		"successful": result.Successful,
		"failed":     result.Failed,
	})
	return result, nil
}
