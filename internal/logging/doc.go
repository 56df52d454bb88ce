// Package logging builds the slog logger shared by the bridge binaries.
package logging
