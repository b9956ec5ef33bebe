package gitworkspace

import (
	"bufio"
	"context"
	"regexp"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	gitShowSubcommandConstant     = "show"
	gitModulesFileNameConstant    = ".gitmodules"
	revisionPathSeparatorConstant = ":"
)

var (
	submoduleHeaderPattern = regexp.MustCompile(`^\[submodule "(.+)"\]$`)
	submoduleURLPattern    = regexp.MustCompile(`^\s*url\s*=\s*(.+)$`)
	submodulePathPattern   = regexp.MustCompile(`^\s*path\s*=\s*(.+)$`)
)

// Submodule is a submodule declared in .gitmodules, pinned to a commit.
type Submodule struct {
	Name   string
	Path   string
	URL    string
	Commit string
}

// ParseGitModules reads submodule records from .gitmodules content. Records
// are completed at the next header or at the end of input, and a record
// lacking a url or a path is rejected.
func ParseGitModules(content string) ([]Submodule, error) {
	submodules := []Submodule{}
	var current *Submodule

	finalize := func() error {
		if current == nil {
			return nil
		}
		if len(current.URL) == 0 {
			return InvalidSubmoduleError{Name: current.Name, Field: submoduleFieldURLConstant}
		}
		if len(current.Path) == 0 {
			return InvalidSubmoduleError{Name: current.Name, Field: submoduleFieldPathConstant}
		}
		submodules = append(submodules, *current)
		current = nil
		return nil
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if match := submoduleHeaderPattern.FindStringSubmatch(strings.TrimSpace(line)); match != nil {
			if finalizeError := finalize(); finalizeError != nil {
				return nil, finalizeError
			}
			current = &Submodule{Name: match[1]}
			continue
		}
		if current == nil {
			continue
		}
		if match := submoduleURLPattern.FindStringSubmatch(line); match != nil {
			current.URL = strings.TrimSpace(match[1])
			continue
		}
		if match := submodulePathPattern.FindStringSubmatch(line); match != nil {
			current.Path = strings.TrimSpace(match[1])
		}
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	if finalizeError := finalize(); finalizeError != nil {
		return nil, finalizeError
	}
	return submodules, nil
}

// GetGitSubmodules lists the submodules recorded at commit together with the
// commit each one is pinned to. The empty tree and commits without a
// .gitmodules file yield an empty list.
func (workspace *Workspace) GetGitSubmodules(executionContext context.Context, repositoryPath string, commit string) ([]Submodule, error) {
	if commit == gitprovider.EmptyGitObject {
		return []Submodule{}, nil
	}

	content, found, showError := workspace.GetFileFromGit(executionContext, repositoryPath, commit, gitModulesFileNameConstant)
	if showError != nil {
		return nil, showError
	}
	if !found {
		return []Submodule{}, nil
	}

	submodules, parseError := ParseGitModules(content)
	if parseError != nil {
		return nil, parseError
	}

	for index := range submodules {
		arguments := []string{gitRevParseSubcommandConstant, commit + revisionPathSeparatorConstant + submodules[index].Path}
		result, revParseError := workspace.runGit(executionContext, repositoryPath, gitRevParseSubcommandConstant, arguments, nil)
		if revParseError != nil {
			return nil, revParseError
		}
		submodules[index].Commit = strings.TrimSpace(result.StandardOutput)
	}
	return submodules, nil
}
