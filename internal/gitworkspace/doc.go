// Package gitworkspace drives a local git working copy through the git binary.
//
// Workspace resolves refs, enumerates submodules, resets working trees with
// recovery from unmatched pathspecs, manages remotes and injects
// authorization headers for remote operations. Workspace also satisfies
// gitprovider.Repository so local checkouts can stand in for hosted ones.
package gitworkspace
