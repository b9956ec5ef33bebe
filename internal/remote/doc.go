// Package remote is the dependency-flow facade over a git repository backend.
// It layers manifest parsing, merge message composition and asset location
// resolution on top of gitprovider.Repository implementations.
package remote
