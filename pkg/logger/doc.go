// Package logger builds the structured slog logger shared by every command.
// Production environments get JSON output, everything else human readable text.
package logger
