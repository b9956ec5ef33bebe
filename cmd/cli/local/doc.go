// Package local provides the depflow subcommands that inspect and modify
// local git working trees.
package local
