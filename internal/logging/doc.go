// Package logging provides structured logging with per-module log level
// configuration on top of log/slog.
//
// Initialize the system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"pipeline": "debug",
//			"api":      "warn",
//		},
//	})
//
// Get a logger for a module:
//
//	logger := logging.GetLogger("pipeline")
//	logger.Info("going live", "mode", mode)
//
// Output goes to stdout (text or json), to the systemd journal when one is
// reachable, or to both. Journal entries carry SYSLOG_IDENTIFIER=streamnode,
// so `journalctl -t streamnode -f` follows the node live.
package logging
