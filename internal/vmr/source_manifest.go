package vmr

import (
	"encoding/json"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

// SourceManifestPath is the VMR-relative location of the source manifest.
const SourceManifestPath = "src/source-manifest.json"

const manifestUnreadableMessageConstant = "source manifest cannot be decoded"

// RepositoryRecord is the synchronized state of one product repository.
type RepositoryRecord struct {
	Path      string `json:"path"`
	RemoteURI string `json:"remoteUri"`
	CommitSHA string `json:"commitSha"`
	BarID     *int   `json:"barId,omitempty"`
}

// SubmoduleRecord is the synchronized state of one submodule.
type SubmoduleRecord struct {
	Path      string `json:"path"`
	RemoteURI string `json:"remoteUri"`
	CommitSHA string `json:"commitSha"`
}

// SourceManifest lists the repositories and submodules synchronized into the VMR.
type SourceManifest struct {
	Repositories []RepositoryRecord `json:"repositories"`
	Submodules   []SubmoduleRecord  `json:"submodules"`
}

// ParseSourceManifest decodes manifest content. Absent sections decode as empty.
func ParseSourceManifest(content string) (SourceManifest, error) {
	var manifest SourceManifest
	if decodeError := json.Unmarshal([]byte(content), &manifest); decodeError != nil {
		return SourceManifest{}, gitprovider.MalformedInputError{
			Input:   SourceManifestPath,
			Message: manifestUnreadableMessageConstant,
			Cause:   decodeError,
		}
	}
	if manifest.Repositories == nil {
		manifest.Repositories = []RepositoryRecord{}
	}
	if manifest.Submodules == nil {
		manifest.Submodules = []SubmoduleRecord{}
	}
	return manifest, nil
}

// Repository finds the record synchronized at path, ignoring case.
func (manifest SourceManifest) Repository(path string) (RepositoryRecord, bool) {
	for _, record := range manifest.Repositories {
		if strings.EqualFold(record.Path, path) {
			return record, true
		}
	}
	return RepositoryRecord{}, false
}

// SubmodulesUnder returns the submodules nested under a repository path.
func (manifest SourceManifest) SubmodulesUnder(repositoryPath string) []SubmoduleRecord {
	prefix := strings.TrimSuffix(repositoryPath, "/") + "/"
	submodules := []SubmoduleRecord{}
	for _, record := range manifest.Submodules {
		if strings.HasPrefix(record.Path, prefix) {
			submodules = append(submodules, record)
		}
	}
	return submodules
}
