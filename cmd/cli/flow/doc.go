// Package flow provides the depflow subcommands that read dependency data
// from hosted repositories and the build registry.
package flow
