/*
Package log provides structured logging for bsgo using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("adder")                   │          │
	│  │  - WithRunID(runID)                         │          │
	│  │  - WithPathID(pathID)                       │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("backup run started")

	runLog := log.WithRunID(runID.String())
	runLog.Info().Str("source", sourcePath).Msg("adding path")

	log.Logger.Error().
		Err(err).
		Str("digest", d.String()).
		Msg("failed to write blob")

Per-path failures that a unit of work swallows (recorded instead as a
FailedToRead event) log at Warn; failures that abort the unit of work log at
Error.

# Integration Points

  - pkg/adder: logs swallowed read failures at Warn
  - pkg/restorer: logs failed restore outcomes at Warn
  - pkg/executor: logs job fault isolation
  - pkg/api: logs the listen address when the server starts

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data (run ID, path ID, digest)
  - Log errors with .Err() for stack traces

Don't:
  - Log blob contents or full path trees at Info
  - Use Debug level in production
  - Concatenate strings into the message (use .Str, .Int64)
*/
package log
