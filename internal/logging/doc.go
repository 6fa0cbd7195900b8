// Package logging configures structured slog output for cmsindex.
//
// By default the CLI logs human-readable text to stderr at the configured
// level. With --debug, JSON logs are additionally written to a size-rotated
// file under ~/.cmsindex/logs/ so long reindex runs can be inspected later.
package logging
