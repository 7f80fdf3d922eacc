// Package logging provides a structured logging system for stackmgr with
// unified log handling and level filtering.
//
// The package is built on Go's standard slog package. Every entry carries a
// timestamp, a level, a subsystem identifier, the message, and an optional
// error. Subsystems mirror the packages doing the work (Config, Validation,
// Orchestrator, Broker, Database, RESTService, WebUI, HostOps, Network).
//
// Usage:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Orchestrator", "Installing desired components...")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Error("Broker", err, "Failed to start broker service")
//
// The logging system is safe for concurrent use, although stackmgr's
// orchestration is intentionally single-threaded.
package logging
