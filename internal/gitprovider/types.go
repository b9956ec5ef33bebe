package gitprovider

import "time"

// EmptyGitObject is the well-known hash of the empty git tree.
const EmptyGitObject = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// BotName identifies the automation account whose commits are omitted from merge messages.
const BotName = "dotnet-maestro[bot]"

// CommentMarker ends every pull request comment posted by depflow so later
// runs can find and update their own comment.
const CommentMarker = "\n\n[//]: # (This identifies this comment as a Maestro++ comment)\n"

// DependencyType distinguishes product from toolset dependencies.
type DependencyType string

// Dependency types.
const (
	DependencyTypeProduct DependencyType = DependencyType("product")
	DependencyTypeToolset DependencyType = DependencyType("toolset")
)

// DependencyDetail is a declared dependency. Locations is written once by the
// asset location resolver and, once written, holds only NuGet feed URIs.
type DependencyDetail struct {
	Name                         string           `yaml:"name"`
	Version                      string           `yaml:"version"`
	Commit                       string           `yaml:"commit"`
	RepoURI                      string           `yaml:"repo_uri"`
	Type                         DependencyType   `yaml:"type,omitempty"`
	Pinned                       bool             `yaml:"pinned,omitempty"`
	CoherentParentDependencyName string           `yaml:"coherent_parent,omitempty"`
	SkipProperty                 bool             `yaml:"skip_property,omitempty"`
	SourceBuild                  *SourceBuildInfo `yaml:"source_build,omitempty"`
	Locations                    []string         `yaml:"locations,omitempty"`
}

// SourceBuildInfo carries the source-build metadata of a dependency.
type SourceBuildInfo struct {
	RepoName    string `yaml:"repo_name"`
	ManagedOnly bool   `yaml:"managed_only,omitempty"`
	TarballOnly bool   `yaml:"tarball_only,omitempty"`
}

// PullRequestStatus is the lifecycle state of a pull request.
type PullRequestStatus string

// Pull request states.
const (
	PullRequestStatusOpen   PullRequestStatus = PullRequestStatus("Open")
	PullRequestStatusClosed PullRequestStatus = PullRequestStatus("Closed")
	PullRequestStatusMerged PullRequestStatus = PullRequestStatus("Merged")
)

// PullRequest describes a pull request on a hosted provider.
type PullRequest struct {
	URL           string
	Title         string
	Description   string
	BaseBranch    string
	HeadBranch    string
	Status        PullRequestStatus
	HeadCommitSHA string
	UpdatedAt     time.Time
}

// ReviewState is the canonical display state of a review.
type ReviewState string

// Review states.
const (
	ReviewStateApproved         ReviewState = ReviewState("Approved")
	ReviewStateChangesRequested ReviewState = ReviewState("ChangesRequested")
	ReviewStateRejected         ReviewState = ReviewState("Rejected")
	ReviewStateCommented        ReviewState = ReviewState("Commented")
	ReviewStatePending          ReviewState = ReviewState("Pending")
)

// Review is the latest actionable review left by one author.
type Review struct {
	Author string
	State  ReviewState
	URL    string
}

// CheckState is the canonical state of a status check.
type CheckState string

// Check states.
const (
	CheckStateNone    CheckState = CheckState("None")
	CheckStatePending CheckState = CheckState("Pending")
	CheckStateError   CheckState = CheckState("Error")
	CheckStateFailure CheckState = CheckState("Failure")
	CheckStateSuccess CheckState = CheckState("Success")
)

// Check is a status or check run attached to the head commit of a pull request.
type Check struct {
	Name          string
	URL           string
	State         CheckState
	IsMergePolicy bool
}

// Commit is a commit listed on a pull request.
type Commit struct {
	Author  string
	SHA     string
	Message string
}

// ContentEncoding describes how GitFile.Content is encoded.
type ContentEncoding string

// Content encodings.
const (
	ContentEncodingUTF8   ContentEncoding = ContentEncoding("utf-8")
	ContentEncodingBase64 ContentEncoding = ContentEncoding("base64")
)

// DefaultFileMode is the git mode of a regular, non-executable file.
const DefaultFileMode = "100644"

// GitFile is a file read from a repository at a specific commit.
type GitFile struct {
	FilePath        string
	Content         string
	ContentEncoding ContentEncoding
	Mode            string
}

// MergePullRequestParameters controls how a pull request is merged.
type MergePullRequestParameters struct {
	CommitToMerge      string
	SquashMerge        bool
	DeleteSourceBranch bool
}

// CloneOptions describes a clone of a remote repository to disk.
type CloneOptions struct {
	RepoURI           string
	Ref               string
	TargetDirectory   string
	IncludeSubmodules bool
}
