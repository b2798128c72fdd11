// Package logging assembles structured slog loggers used across cocomerge.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and defines the standard field keys (dataset, split, scene_id,
// run_id) so pipeline log lines share one shape. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
