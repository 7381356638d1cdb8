// Command bsbackup scans a source path and records the resulting FileEvents
// against a backup database, creating blobs for any new content (§6, CLI
// surface: bs_backup).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/bsgo/pkg/adder"
	"github.com/cuemby/bsgo/pkg/backup"
	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/cuemby/bsgo/pkg/blobmanager"
	"github.com/cuemby/bsgo/pkg/eventbus"
	"github.com/cuemby/bsgo/pkg/fileevent"
	"github.com/cuemby/bsgo/pkg/log"
	"github.com/cuemby/bsgo/pkg/metrics"
	"github.com/cuemby/bsgo/pkg/runrepo"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Exit codes (§6): 0 success, 1 argument error, 2 path-not-found,
// 3 source-not-supported, 4 create-db-failed, 5 db-not-found.
const (
	exitSuccess = iota
	exitArgumentError
	exitPathNotFound
	exitSourceNotSupported
	exitCreateDBFailed
	exitDBNotFound
)

func main() {
	os.Exit(run())
}

var rootCmd = &cobra.Command{
	Use:   "bsbackup",
	Short: "Back up a file or directory into a content-addressed backup database",
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("source", "", "Path on disk to back up (required)")
	rootCmd.Flags().String("target", "", "Blob store directory (required)")
	rootCmd.Flags().String("db", "", "Path to the backup database to create (required)")
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
		code, runErr = runBackup(cmd)
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

func runBackup(cmd *cobra.Command) (int, error) {
	source, _ := cmd.Flags().GetString("source")
	target, _ := cmd.Flags().GetString("target")
	dbPath, _ := cmd.Flags().GetString("db")
	poolCapacity, _ := cmd.Flags().GetInt("pool-capacity")

	if source == "" || target == "" || dbPath == "" {
		return exitArgumentError, errors.New("--source, --target, and --db are required")
	}

	store, err := blob.NewDirectoryStore(target)
	if err != nil {
		return exitArgumentError, err
	}
	manager := blobmanager.New()
	manager.Add(store)

	facade, err := backup.Create(dbPath, poolCapacity, manager)
	if err != nil {
		return exitCreateDBFailed, err
	}
	defer facade.Close()

	runID := uuid.New()
	runLog := log.WithRunID(runID.String())

	uow, err := facade.CreateUnitOfWork(context.Background())
	if err != nil {
		return exitCreateDBFailed, err
	}
	defer uow.Close()

	if _, err := uow.Runs.AddEvent(runrepo.Event{RunID: runID, DateTimeUTC: time.Now().Unix(), Action: runrepo.ActionStarted}); err != nil {
		return exitCreateDBFailed, err
	}

	bus := eventbus.New()
	timer := metrics.NewTimer()

	events, err := adder.New(uow, bus, runID).Add(source)
	if err != nil {
		runLog.Error().Err(err).Msg("backup run failed")
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		switch {
		case errors.Is(err, adder.ErrPathNotFound):
			return exitPathNotFound, err
		case errors.Is(err, adder.ErrSourcePathNotSupported):
			return exitSourceNotSupported, err
		default:
			return exitArgumentError, err
		}
	}

	if _, err := uow.Runs.AddEvent(runrepo.Event{RunID: runID, DateTimeUTC: time.Now().Unix(), Action: runrepo.ActionFinished}); err != nil {
		return exitCreateDBFailed, err
	}

	stats, err := uow.FileEvent.StatisticsByRun([]uuid.UUID{runID}, []fileevent.Action{fileevent.ActionChangedAdded, fileevent.ActionChangedModified})
	if err != nil {
		return exitCreateDBFailed, err
	}
	runStats := stats[runID]
	metrics.BackupRunBytesTotal.Set(float64(runStats.TotalSizeBytes))
	metrics.BackupRunFilesTotal.Set(float64(runStats.Count))

	if err := uow.Commit(); err != nil {
		return exitCreateDBFailed, err
	}

	metrics.RunsTotal.WithLabelValues("finished").Inc()
	timer.ObserveDuration(metrics.RunDuration)
	runLog.Info().Int("events", len(events)).Msg("backup run finished")
	fmt.Printf("Backed up %s: %d events recorded\n", source, len(events))
	return exitSuccess, nil
}
