package fileevent

import (
	"github.com/cuemby/bsgo/pkg/pathrepo"
)

// visibleActions is the set of actions whose paths are considered "live"
// for browsing purposes: a path last touched by Added, Modified, or
// Unchanged currently exists; a path last touched by Removed does not.
//
// This is the answer to the open question the source carries: List's
// contract is specified only as "the paths whose latest action is in this
// set", with pagination left to the caller and no attempt to interleave
// Removed rows into the same listing.
var visibleActions = []Action{ActionChangedAdded, ActionChangedModified, ActionUnchanged}

// Entry is one row of a virtual directory listing: a live path together
// with the event that last touched it.
type Entry struct {
	Path  string
	Event Event
}

// List returns, for every path whose latest event's action is in
// {Added, Modified, Unchanged}, an Entry -- paginated by skip/limit. Order
// follows event id ascending, matching Search.
func (r *Repository) List(paths *pathrepo.Repository, skip, limit int) ([]Entry, error) {
	events, err := r.Search(paths, Criteria{Actions: visibleActions}, skip, limit)
	if err != nil {
		return nil, err
	}

	// Search already applies the action filter per-row, but that alone
	// does not collapse to "latest event per path" -- re-derive the
	// current path_id -> last event snapshot and keep only entries whose
	// returned event is still the latest for its path. latestEvent (unlike
	// FindLastChangedEvent) considers Unchanged rows too, so a path whose
	// true latest event is Unchanged isn't shadowed by a stale Added or
	// Modified row still sitting in the visibleActions-filtered set.
	entries := make([]Entry, 0, len(events))
	for _, e := range events {
		latest, err := r.latestEvent(e.PathID)
		if err != nil {
			return nil, err
		}
		if latest == nil || latest.ID != e.ID {
			continue
		}
		row, err := paths.GetRow(e.PathID)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		entries = append(entries, Entry{Path: row.FullPath, Event: e})
	}
	return entries, nil
}
