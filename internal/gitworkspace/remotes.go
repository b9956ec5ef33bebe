package gitworkspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const (
	gitRemoteSubcommandConstant    = "remote"
	gitRemoteVerboseFlagConstant   = "-v"
	gitRemoteAddSubcommandConstant = "add"
	remoteNameTemplateConstant     = "%016x"
	addedRemoteMessageConstant     = "Added remote"
)

// RemoteEntry is a configured remote.
type RemoteEntry struct {
	Name string
	URL  string
}

// parseRemoteLines reads every line of `git remote -v` output, so a remote
// with distinct fetch and push URLs yields two entries. Fields are separated
// by spaces or tabs.
func parseRemoteLines(output string) []RemoteEntry {
	entries := []RemoteEntry{}
	for _, line := range strings.Split(output, "\n") {
		fields := strings.FieldsFunc(line, func(character rune) bool {
			return character == ' ' || character == '\t'
		})
		if len(fields) < 2 {
			continue
		}
		entries = append(entries, RemoteEntry{Name: fields[0], URL: fields[1]})
	}
	return entries
}

// parseRemoteEntries keeps the first URL listed for each remote name.
func parseRemoteEntries(output string) []RemoteEntry {
	entries := []RemoteEntry{}
	seen := make(map[string]struct{})
	for _, entry := range parseRemoteLines(output) {
		if _, exists := seen[entry.Name]; exists {
			continue
		}
		seen[entry.Name] = struct{}{}
		entries = append(entries, entry)
	}
	return entries
}

// RemoteNameForURL derives the deterministic sixteen character remote name
// used for repoURL.
func RemoteNameForURL(repoURL string) string {
	return fmt.Sprintf(remoteNameTemplateConstant, xxhash.Sum64String(repoURL))
}

// GetRemotes lists the remotes configured in repositoryPath.
func (workspace *Workspace) GetRemotes(executionContext context.Context, repositoryPath string) ([]RemoteEntry, error) {
	output, listError := workspace.listRemotes(executionContext, repositoryPath)
	if listError != nil {
		return nil, listError
	}
	return parseRemoteEntries(output), nil
}

func (workspace *Workspace) listRemotes(executionContext context.Context, repositoryPath string) (string, error) {
	result, listError := workspace.runGit(executionContext, repositoryPath, gitRemoteSubcommandConstant, []string{gitRemoteSubcommandConstant, gitRemoteVerboseFlagConstant}, nil)
	if listError != nil {
		return "", listError
	}
	return result.StandardOutput, nil
}

// AddRemoteIfMissing returns the name of the remote whose fetch or push URL
// equals repoURL, adding one named after a hash of the URL when none exists.
func (workspace *Workspace) AddRemoteIfMissing(executionContext context.Context, repositoryPath string, repoURL string) (string, error) {
	output, listError := workspace.listRemotes(executionContext, repositoryPath)
	if listError != nil {
		return "", listError
	}
	for _, remote := range parseRemoteLines(output) {
		if remote.URL == repoURL {
			return remote.Name, nil
		}
	}

	remoteName := RemoteNameForURL(repoURL)
	arguments := []string{gitRemoteSubcommandConstant, gitRemoteAddSubcommandConstant, remoteName, repoURL}
	if _, addError := workspace.runGit(executionContext, repositoryPath, gitRemoteSubcommandConstant, arguments, nil); addError != nil {
		return "", addError
	}
	workspace.logger.Debug(addedRemoteMessageConstant,
		zap.String(logFieldRepositoryPathConstant, repositoryPath),
		zap.String(logFieldRemoteNameConstant, remoteName),
		zap.String(logFieldRemoteURLConstant, repoURL),
	)
	return remoteName, nil
}
