// Package fileevent is the append-only per-path change log (§4.3,
// component F) that every other feature depends on.
package fileevent

import (
	"github.com/cuemby/bsgo/pkg/digest"
	"github.com/google/uuid"
)

// Action enumerates the kinds of change a FileEvent can record. Encodings
// are binding (§6).
type Action int

const (
	ActionChangedAdded Action = iota
	ActionChangedModified
	ActionChangedRemoved
	ActionFailedToRead
	ActionUnsupported
	ActionUnchanged
)

// String renders the action for logs and diagnostics.
func (a Action) String() string {
	switch a {
	case ActionChangedAdded:
		return "ChangedAdded"
	case ActionChangedModified:
		return "ChangedModified"
	case ActionChangedRemoved:
		return "ChangedRemoved"
	case ActionFailedToRead:
		return "FailedToRead"
	case ActionUnsupported:
		return "Unsupported"
	case ActionUnchanged:
		return "Unchanged"
	default:
		return "Unknown"
	}
}

// IsChange reports whether a is one of the three actions that represent the
// current state of a path (Added, Modified, Removed) -- the filter used by
// FindLastChangedEvent and LastChangedEventsUnder (§4.3).
func (a Action) IsChange() bool {
	switch a {
	case ActionChangedAdded, ActionChangedModified, ActionChangedRemoved:
		return true
	default:
		return false
	}
}

// Type enumerates the on-disk object kind a FileEvent describes. Encodings
// are binding (§6).
type Type int

const (
	TypeRegularFile Type = iota
	TypeDirectory
	TypeUnsupported
)

func (t Type) String() string {
	switch t {
	case TypeRegularFile:
		return "RegularFile"
	case TypeDirectory:
		return "Directory"
	case TypeUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Event is a single append-only row in the change log.
type Event struct {
	ID            int64          `json:"id"`
	PathID        int64          `json:"path_id"`
	ContentDigest *digest.Digest `json:"content_digest,omitempty"`
	Action        Action         `json:"action"`
	FileType      Type           `json:"file_type"`
	RunID         uuid.UUID      `json:"run_id"`
}
