// Package logging provides a simple leveled logging interface for the
// asset browser core.
//
// The log level is configured via the BOOKMARKS_LOG_LEVEL (or LOG_LEVEL)
// environment variable; DEBUG=1 forces debug output.
package logging
