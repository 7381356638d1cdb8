// Command bsrestore replays the currently live FileEvents under a tracked
// path back onto disk under a destination directory (§6, CLI surface:
// bs_restore).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cuemby/bsgo/pkg/backup"
	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/cuemby/bsgo/pkg/blobmanager"
	"github.com/cuemby/bsgo/pkg/eventbus"
	"github.com/cuemby/bsgo/pkg/fileevent"
	"github.com/cuemby/bsgo/pkg/fspath"
	"github.com/cuemby/bsgo/pkg/log"
	"github.com/cuemby/bsgo/pkg/restorer"
	"github.com/spf13/cobra"
)

// Exit codes (§6), with 3 meaning *target* (destination) not supported for
// this command: 0 success, 1 argument error, 2 path-not-found,
// 3 target-not-supported, 4 create-db-failed (returned here when committing
// the restore's unit of work fails), 5 db-not-found.
const (
	exitSuccess = iota
	exitArgumentError
	exitPathNotFound
	exitTargetNotSupported
	exitCreateDBFailed
	exitDBNotFound
)

func main() {
	os.Exit(run())
}

var rootCmd = &cobra.Command{
	Use:   "bsrestore",
	Short: "Restore a tracked path's live files from a backup database",
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("path", "", "Tracked path to restore (required)")
	rootCmd.Flags().String("source", "", "Blob store directory (required)")
	rootCmd.Flags().String("destination", "", "Directory to restore into (required)")
	rootCmd.Flags().String("db", "", "Path to the backup database to open (required)")
	rootCmd.Flags().Int("pool-capacity", 4, "Maximum concurrent database connections")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

func run() int {
	code := exitSuccess
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		var runErr error
		code, runErr = runRestore(cmd)
		return runErr
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code == exitSuccess {
			code = exitArgumentError
		}
	}
	return code
}

func runRestore(cmd *cobra.Command) (int, error) {
	path, _ := cmd.Flags().GetString("path")
	source, _ := cmd.Flags().GetString("source")
	destination, _ := cmd.Flags().GetString("destination")
	dbPath, _ := cmd.Flags().GetString("db")
	poolCapacity, _ := cmd.Flags().GetInt("pool-capacity")

	if path == "" || source == "" || destination == "" || dbPath == "" {
		return exitArgumentError, errors.New("--path, --source, --destination, and --db are required")
	}

	store, err := blob.NewDirectoryStore(source)
	if err != nil {
		return exitArgumentError, err
	}
	manager := blobmanager.New()
	manager.Add(store)

	facade, err := backup.OpenExisting(dbPath, poolCapacity, manager)
	if err != nil {
		return exitDBNotFound, err
	}
	defer facade.Close()

	uow, err := facade.CreateUnitOfWork(context.Background())
	if err != nil {
		return exitDBNotFound, err
	}
	defer uow.Close()

	trackedPath := fspath.FromNative(path)
	pathID, err := uow.Paths.FindPath(trackedPath)
	if err != nil {
		return exitArgumentError, err
	}
	if pathID == nil {
		// The tracked path may have been recorded as a directory (with a
		// trailing separator); --path doesn't require the caller to know
		// which, since the path being restored need not exist on disk.
		trackedPath = trackedPath.EnsureTrailingSeparator()
		pathID, err = uow.Paths.FindPath(trackedPath)
		if err != nil {
			return exitArgumentError, err
		}
	}
	if pathID == nil {
		return exitPathNotFound, fmt.Errorf("bsrestore: path not tracked: %s", path)
	}

	liveEvents, err := uow.FileEvent.LastChangedEventsUnder(uow.Paths, trackedPath.String())
	if err != nil {
		return exitArgumentError, err
	}

	events := make([]fileevent.Event, 0, len(liveEvents))
	for _, e := range liveEvents {
		events = append(events, e)
	}

	bus := eventbus.New()
	results, err := restorer.New(uow, bus).Restore(events, destination)
	if err != nil {
		if errors.Is(err, restorer.ErrTargetPathNotSupported) {
			return exitTargetNotSupported, err
		}
		return exitArgumentError, err
	}

	if err := uow.Commit(); err != nil {
		return exitCreateDBFailed, err
	}

	var restored, skipped, failed int
	for _, r := range results {
		switch r.Outcome {
		case restorer.OutcomeRestored:
			restored++
		case restorer.OutcomeSkipped:
			skipped++
		default:
			failed++
		}
	}
	fmt.Printf("Restored %s into %s: %d restored, %d skipped, %d failed\n", path, destination, restored, skipped, failed)
	return exitSuccess, nil
}
