// Package cli constructs the depflow command-line interface. It wires the
// Cobra command hierarchy, the layered configuration and the zap logger, and
// builds the workspace, hosted API and build registry clients that the
// subcommands run against.
package cli
