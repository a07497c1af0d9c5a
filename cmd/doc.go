// Package cmd implements the command-line interface for safegate.
//
// This package provides the following commands:
//   - serve: Start the gateway HTTP server (and the metrics server)
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
