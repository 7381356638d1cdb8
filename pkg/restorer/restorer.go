// Package restorer implements the FileRestorer (§4.5): replaying a set of
// FileEvents back onto disk under a target directory.
package restorer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/bsgo/pkg/eventbus"
	"github.com/cuemby/bsgo/pkg/fileevent"
	"github.com/cuemby/bsgo/pkg/fspath"
	"github.com/cuemby/bsgo/pkg/log"
	"github.com/cuemby/bsgo/pkg/metrics"
	"github.com/cuemby/bsgo/pkg/unitofwork"
)

// ErrTargetPathNotSupported is returned by Restore when target does not
// resolve to an existing directory.
var ErrTargetPathNotSupported = errors.New("restorer: target path not supported")

// Outcome enumerates what Restore did with a single event.
type Outcome int

const (
	OutcomeRestored Outcome = iota
	OutcomeSkipped
	OutcomeUnsupportedFileEvent
	OutcomeFailedToCreateDirectory
	OutcomeFailedToWriteFile
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRestored:
		return "Restored"
	case OutcomeSkipped:
		return "Skipped"
	case OutcomeUnsupportedFileEvent:
		return "UnsupportedFileEvent"
	case OutcomeFailedToCreateDirectory:
		return "FailedToCreateDirectory"
	case OutcomeFailedToWriteFile:
		return "FailedToWriteFile"
	default:
		return "Unknown"
	}
}

// Result pairs one restored event with what happened to it.
type Result struct {
	Event   fileevent.Event
	Path    fspath.Path
	Outcome Outcome
}

// Restorer replays FileEvents back onto disk, reading blob content through
// the unit of work it is constructed against.
type Restorer struct {
	uow *unitofwork.UnitOfWork
	bus *eventbus.Bus
}

// New constructs a Restorer bound to uow, publishing to bus (nil to skip).
func New(uow *unitofwork.UnitOfWork, bus *eventbus.Bus) *Restorer {
	return &Restorer{uow: uow, bus: bus}
}

// Restore replays events under target, which must resolve to an existing
// directory. Restore is order-independent within the supported action set;
// results are returned in input order.
func (r *Restorer) Restore(events []fileevent.Event, target string) ([]Result, error) {
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrTargetPathNotSupported, target)
	}
	targetPath := fspath.FromNative(target)

	results := make([]Result, 0, len(events))
	for _, event := range events {
		result, err := r.restoreOne(targetPath, event)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
		metrics.RestoreEventsTotal.WithLabelValues(result.Outcome.String()).Inc()
		if result.Outcome == OutcomeFailedToCreateDirectory || result.Outcome == OutcomeFailedToWriteFile {
			log.Logger.Warn().Str("path", result.Path.String()).Str("outcome", result.Outcome.String()).Msg("restorer: failed to restore path")
		}

		if r.bus != nil {
			if err := r.bus.Publish(eventbus.Event{Kind: eventbus.KindFileEvent, Payload: result}); err != nil {
				return nil, fmt.Errorf("restorer: subscriber rejected event: %w", err)
			}
		}
	}
	return results, nil
}

func (r *Restorer) restoreOne(target fspath.Path, event fileevent.Event) (Result, error) {
	row, err := r.uow.Paths.GetRow(event.PathID)
	if err != nil {
		return Result{}, err
	}
	if row == nil {
		return Result{}, fmt.Errorf("restorer: event references unknown path_id %d", event.PathID)
	}
	sourcePath := fspath.New(row.FullPath)
	restoredTarget := target.AppendFullPath(sourcePath)

	if _, err := os.Stat(restoredTarget.Normal()); err == nil {
		return Result{Event: event, Path: restoredTarget, Outcome: OutcomeSkipped}, nil
	}

	if event.Action != fileevent.ActionChangedAdded && event.Action != fileevent.ActionChangedModified {
		return Result{Event: event, Path: restoredTarget, Outcome: OutcomeUnsupportedFileEvent}, nil
	}

	switch event.FileType {
	case fileevent.TypeRegularFile:
		return r.restoreFile(restoredTarget, event)
	case fileevent.TypeDirectory:
		return r.restoreDirectory(restoredTarget, event)
	default:
		return Result{Event: event, Path: restoredTarget, Outcome: OutcomeUnsupportedFileEvent}, nil
	}
}

func (r *Restorer) restoreFile(target fspath.Path, event fileevent.Event) (Result, error) {
	parent := filepath.Dir(target.Normal())
	if err := os.MkdirAll(parent, 0700); err != nil {
		return Result{Event: event, Path: target, Outcome: OutcomeFailedToCreateDirectory}, nil
	}

	if event.ContentDigest == nil {
		return Result{Event: event, Path: target, Outcome: OutcomeFailedToWriteFile}, nil
	}
	content, err := r.uow.GetBlob(*event.ContentDigest)
	if err != nil {
		return Result{Event: event, Path: target, Outcome: OutcomeFailedToWriteFile}, nil
	}
	if err := os.WriteFile(target.Normal(), content, 0600); err != nil {
		return Result{Event: event, Path: target, Outcome: OutcomeFailedToWriteFile}, nil
	}
	return Result{Event: event, Path: target, Outcome: OutcomeRestored}, nil
}

func (r *Restorer) restoreDirectory(target fspath.Path, event fileevent.Event) (Result, error) {
	if err := os.MkdirAll(target.Normal(), 0700); err != nil {
		return Result{Event: event, Path: target, Outcome: OutcomeFailedToCreateDirectory}, nil
	}
	return Result{Event: event, Path: target, Outcome: OutcomeRestored}, nil
}
