// Package logging provides opt-in file-based logging with rotation for grans.
// When the --verbose flag is set, comprehensive logs are written to the
// platform log directory (e.g. ~/.local/share/grans/logs/) for debugging
// sync and indexing failures.
//
// By default (without --verbose), logging is minimal and goes to stderr
// only, so a quick `grans search ...` stays quiet.
package logging
