// Package gitrepo parses git remote URLs and classifies the service that hosts them.
package gitrepo
