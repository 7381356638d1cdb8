// Command bsdaemon exposes a backup database's health, readiness, metrics,
// and a ping endpoint over HTTP (§6, CLI surface: bs_daemon).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/cuemby/bsgo/pkg/api"
	"github.com/cuemby/bsgo/pkg/backup"
	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/cuemby/bsgo/pkg/blobmanager"
	"github.com/cuemby/bsgo/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bsdaemon",
	Short: "Serve health, readiness, and metrics for a backup database",
	RunE:  runDaemon,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("db", "", "Path to the backup database to serve (required)")
	rootCmd.Flags().String("blob-store", "", "Blob store directory (required)")
	rootCmd.Flags().String("bind-addr", ":8090", "TCP address to listen on")
	rootCmd.Flags().Int("pool-capacity", 4, "Maximum concurrent database connections")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

func runDaemon(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	blobStoreDir, _ := cmd.Flags().GetString("blob-store")
	bindAddr, _ := cmd.Flags().GetString("bind-addr")
	poolCapacity, _ := cmd.Flags().GetInt("pool-capacity")

	if dbPath == "" || blobStoreDir == "" {
		return errors.New("--db and --blob-store are required")
	}

	store, err := blob.NewDirectoryStore(blobStoreDir)
	if err != nil {
		return fmt.Errorf("bsdaemon: failed to open blob store: %w", err)
	}
	manager := blobmanager.New()
	manager.Add(store)

	facade, err := backup.OpenExisting(dbPath, poolCapacity, manager)
	if err != nil {
		return fmt.Errorf("bsdaemon: failed to open database: %w", err)
	}
	defer facade.Close()

	srv := api.NewServer(facade)
	return srv.Start(bindAddr)
}
