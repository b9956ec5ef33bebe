package buildregistry

import (
	"context"
	"strings"
)

// LocationType classifies where an asset was published.
type LocationType string

// Location types reported by the registry.
const (
	LocationTypeNone      LocationType = LocationType("none")
	LocationTypeNugetFeed LocationType = LocationType("nugetFeed")
	LocationTypeContainer LocationType = LocationType("container")
)

// AssetLocation is one place an asset was published to.
type AssetLocation struct {
	ID       int          `json:"id"`
	Type     LocationType `json:"type"`
	Location string       `json:"location"`
}

// IsNugetFeed reports whether the location is a NuGet feed.
func (location AssetLocation) IsNugetFeed() bool {
	return strings.EqualFold(string(location.Type), string(LocationTypeNugetFeed))
}

// Asset is a versioned artifact produced by a build.
type Asset struct {
	ID          int             `json:"id"`
	BuildID     int             `json:"buildId"`
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	NonShipping bool            `json:"nonShipping"`
	Locations   []AssetLocation `json:"locations"`
}

// Build is the registry record of a build.
type Build struct {
	ID                     int    `json:"id"`
	Commit                 string `json:"commit"`
	AzureDevOpsBuildNumber string `json:"azureDevOpsBuildNumber"`
	GitHubRepository       string `json:"gitHubRepository"`
	AzureDevOpsRepository  string `json:"azureDevOpsRepository"`
}

// Repository returns the repository the build was produced from, preferring GitHub.
func (build Build) Repository() string {
	if len(build.GitHubRepository) > 0 {
		return build.GitHubRepository
	}
	return build.AzureDevOpsRepository
}

// AssetQuery filters GetAssets. Zero-valued optional fields are not sent.
type AssetQuery struct {
	Name        string
	Version     string
	BuildID     *int
	NonShipping *bool
}

// Client reads the build registry.
type Client interface {
	GetAssets(ctx context.Context, query AssetQuery) ([]Asset, error)
	GetBuild(ctx context.Context, buildID int) (Build, error)
}
