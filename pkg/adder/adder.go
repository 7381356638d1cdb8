// Package adder implements the FileAdder (§4.1): the component that scans a
// source path and produces the minimal set of FileEvents needed to bring the
// event stream in line with the current state of the filesystem under it.
package adder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cuemby/bsgo/pkg/blobinfo"
	"github.com/cuemby/bsgo/pkg/digest"
	"github.com/cuemby/bsgo/pkg/eventbus"
	"github.com/cuemby/bsgo/pkg/fileevent"
	"github.com/cuemby/bsgo/pkg/fspath"
	"github.com/cuemby/bsgo/pkg/log"
	"github.com/cuemby/bsgo/pkg/metrics"
	"github.com/cuemby/bsgo/pkg/unitofwork"
	"github.com/google/uuid"
)

// ErrPathNotFound is returned by Add when source_path does not resolve to
// anything on disk.
var ErrPathNotFound = errors.New("adder: path not found")

// ErrSourcePathNotSupported is returned by Add when source_path resolves to
// something other than a regular file or a directory.
var ErrSourcePathNotSupported = errors.New("adder: source path not supported")

// isChangeInPlace reports whether a previous action represents a path still
// being tracked (Added or Modified, as opposed to already removed).
func isChangeInPlace(a fileevent.Action) bool {
	return a == fileevent.ActionChangedAdded || a == fileevent.ActionChangedModified
}

// Adder scans filesystem paths and appends FileEvents to the unit of work it
// is constructed against, publishing each to bus as it goes.
type Adder struct {
	uow   *unitofwork.UnitOfWork
	bus   *eventbus.Bus
	runID uuid.UUID
}

// New constructs an Adder bound to uow, publishing to bus (which may be nil
// to skip publication) under runID.
func New(uow *unitofwork.UnitOfWork, bus *eventbus.Bus, runID uuid.UUID) *Adder {
	return &Adder{uow: uow, bus: bus, runID: runID}
}

// entry is one path visited during a walk, paired with any previously
// recorded change event for it.
type entry struct {
	path     fspath.Path
	previous *fileevent.Event
}

// Add scans sourcePath (a single file or a directory tree) and returns every
// FileEvent emitted, in emission order.
func (a *Adder) Add(sourcePath string) ([]fileevent.Event, error) {
	canonical, err := filepath.EvalSymlinks(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, sourcePath)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, sourcePath)
	}

	cache := make(map[string]int64)

	switch {
	case info.Mode().IsRegular():
		path := fspath.FromNative(canonical)
		previous, err := a.previousEventFor(path)
		if err != nil {
			return nil, err
		}
		return a.visit(entry{path: path, previous: previous}, cache)

	case info.IsDir():
		root := fspath.FromNative(canonical).EnsureTrailingSeparator()
		return a.scanDirectory(root, cache)

	default:
		return nil, fmt.Errorf("%w: %s", ErrSourcePathNotSupported, sourcePath)
	}
}

func (a *Adder) previousEventFor(path fspath.Path) (*fileevent.Event, error) {
	pathID, err := a.uow.Paths.FindPath(path)
	if err != nil {
		return nil, err
	}
	if pathID == nil {
		return nil, nil
	}
	return a.uow.FileEvent.FindLastChangedEvent(*pathID)
}

func (a *Adder) scanDirectory(root fspath.Path, cache map[string]int64) ([]fileevent.Event, error) {
	remaining, err := a.uow.FileEvent.LastChangedEventsUnder(a.uow.Paths, root.String())
	if err != nil {
		return nil, err
	}
	previousFor := func(p fspath.Path) *fileevent.Event {
		if e, ok := remaining[p.String()]; ok {
			delete(remaining, p.String())
			return &e
		}
		return nil
	}

	var events []fileevent.Event

	rootEvents, err := a.visit(entry{path: root, previous: previousFor(root)}, cache)
	if err != nil {
		return nil, err
	}
	events = append(events, rootEvents...)

	walked, err := a.walkChildren(root, previousFor, cache)
	if err != nil {
		return nil, err
	}
	events = append(events, walked...)

	leftoverPaths := make([]string, 0, len(remaining))
	for p := range remaining {
		leftoverPaths = append(leftoverPaths, p)
	}
	sort.Strings(leftoverPaths)
	for _, p := range leftoverPaths {
		prev := remaining[p]
		leftoverEvents, err := a.visit(entry{path: fspath.New(p), previous: &prev}, cache)
		if err != nil {
			return nil, err
		}
		events = append(events, leftoverEvents...)
	}

	return events, nil
}

func (a *Adder) walkChildren(root fspath.Path, previousFor func(fspath.Path) *fileevent.Event, cache map[string]int64) ([]fileevent.Event, error) {
	var events []fileevent.Event

	err := filepath.WalkDir(root.Normal(), func(walked string, d fs.DirEntry, walkErr error) error {
		if walked == root.Normal() {
			return nil // the root itself was already visited by the caller.
		}
		if walkErr != nil {
			return walkErr
		}

		path := fspath.FromNative(walked)
		if d.IsDir() {
			path = path.EnsureTrailingSeparator()
		}

		visited, err := a.visit(entry{path: path, previous: previousFor(path)}, cache)
		if err != nil {
			return err
		}
		events = append(events, visited...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("adder: walk failed: %w", err)
	}
	return events, nil
}

// visit applies the per-path decision table to e and returns the events it
// produces, in emission order (at most two: a type-flip Removed then Added).
func (a *Adder) visit(e entry, cache map[string]int64) ([]fileevent.Event, error) {
	info, statErr := os.Lstat(e.path.Normal())

	if statErr != nil {
		if e.previous != nil && e.previous.Action != fileevent.ActionChangedRemoved {
			return a.emitOne(e.path, cache, fileevent.Event{
				ContentDigest: e.previous.ContentDigest,
				Action:        fileevent.ActionChangedRemoved,
				FileType:      e.previous.FileType,
			})
		}
		return nil, nil
	}

	switch {
	case info.Mode().IsRegular():
		return a.visitFile(e, cache)
	case info.IsDir():
		return a.visitDirectory(e, cache)
	default:
		return a.emitOne(e.path, cache, fileevent.Event{
			Action:   fileevent.ActionUnsupported,
			FileType: fileevent.TypeUnsupported,
		})
	}
}

func (a *Adder) visitFile(e entry, cache map[string]int64) ([]fileevent.Event, error) {
	d, err := a.saveFileContents(e.path)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return a.emitOne(e.path, cache, fileevent.Event{
			Action:   fileevent.ActionFailedToRead,
			FileType: fileevent.TypeRegularFile,
		})
	}

	previous := e.previous
	var events []fileevent.Event

	if previous != nil && previous.Action != fileevent.ActionChangedRemoved && previous.FileType != fileevent.TypeRegularFile {
		flip, err := a.emitOne(e.path, cache, fileevent.Event{
			ContentDigest: previous.ContentDigest,
			Action:        fileevent.ActionChangedRemoved,
			FileType:      previous.FileType,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, flip...)
		previous = nil
	}

	if previous != nil && isChangeInPlace(previous.Action) {
		if previous.ContentDigest != nil && *previous.ContentDigest == *d {
			unchanged, err := a.emitOne(e.path, cache, fileevent.Event{
				ContentDigest: d,
				Action:        fileevent.ActionUnchanged,
				FileType:      fileevent.TypeRegularFile,
			})
			if err != nil {
				return nil, err
			}
			return append(events, unchanged...), nil
		}
		modified, err := a.emitOne(e.path, cache, fileevent.Event{
			ContentDigest: d,
			Action:        fileevent.ActionChangedModified,
			FileType:      fileevent.TypeRegularFile,
		})
		if err != nil {
			return nil, err
		}
		return append(events, modified...), nil
	}

	added, err := a.emitOne(e.path, cache, fileevent.Event{
		ContentDigest: d,
		Action:        fileevent.ActionChangedAdded,
		FileType:      fileevent.TypeRegularFile,
	})
	if err != nil {
		return nil, err
	}
	return append(events, added...), nil
}

func (a *Adder) visitDirectory(e entry, cache map[string]int64) ([]fileevent.Event, error) {
	previous := e.previous
	var events []fileevent.Event

	if previous != nil && previous.Action != fileevent.ActionChangedRemoved && previous.FileType != fileevent.TypeDirectory {
		flip, err := a.emitOne(e.path, cache, fileevent.Event{
			ContentDigest: previous.ContentDigest,
			Action:        fileevent.ActionChangedRemoved,
			FileType:      previous.FileType,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, flip...)
		previous = nil
	}

	if previous != nil && isChangeInPlace(previous.Action) {
		return events, nil // directories are not re-announced unchanged.
	}

	added, err := a.emitOne(e.path, cache, fileevent.Event{
		Action:   fileevent.ActionChangedAdded,
		FileType: fileevent.TypeDirectory,
	})
	if err != nil {
		return nil, err
	}
	return append(events, added...), nil
}

// saveFileContents reads path, deduplicating against the blob-info
// repository and writing to the active blob store on miss. It returns a nil
// digest (not an error) if the file could not be opened for reading.
func (a *Adder) saveFileContents(path fspath.Path) (*digest.Digest, error) {
	content, err := os.ReadFile(path.Normal())
	if err != nil {
		log.Logger.Warn().Err(err).Str("path", path.String()).Msg("adder: failed to read file; recording FailedToRead")
		return nil, nil
	}

	d := digest.FromContent(content)

	existing, err := a.uow.BlobInfo.Find(d)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if err := a.uow.Store().CreateBlob(d, content); err != nil {
			return nil, fmt.Errorf("adder: failed to write blob: %w", err)
		}
		if err := a.uow.BlobInfo.Add(blobinfo.Info{Digest: d, SizeBytes: uint64(len(content))}); err != nil {
			return nil, fmt.Errorf("adder: failed to record blob info: %w", err)
		}
		metrics.BlobsWrittenTotal.Inc()
		metrics.BlobBytesWrittenTotal.Add(float64(len(content)))
	} else {
		metrics.BlobsDedupedTotal.Inc()
	}
	return &d, nil
}

// emitOne interns path's ancestor chain, assigns the leaf path_id to
// template, appends it to the event stream, and publishes it on the bus.
func (a *Adder) emitOne(path fspath.Path, cache map[string]int64, template fileevent.Event) ([]fileevent.Event, error) {
	pathID, err := a.uow.Paths.AddPathTree(path, cache)
	if err != nil {
		return nil, fmt.Errorf("adder: failed to intern path: %w", err)
	}

	template.RunID = a.runID
	event, err := a.uow.FileEvent.AddEvent(template, pathID)
	if err != nil {
		return nil, fmt.Errorf("adder: failed to append event: %w", err)
	}

	if a.bus != nil {
		if err := a.bus.Publish(eventbus.Event{Kind: eventbus.KindFileEvent, Payload: event}); err != nil {
			return nil, fmt.Errorf("adder: subscriber rejected event: %w", err)
		}
	}

	metrics.FileEventsTotal.WithLabelValues(event.Action.String()).Inc()
	return []fileevent.Event{event}, nil
}
