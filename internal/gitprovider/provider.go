package gitprovider

import "context"

// Repository is the capability set offered by both hosted and local git backends.
type Repository interface {
	GetFileContents(ctx context.Context, filePath string, repoURI string, ref string) (string, error)
	GetFilesAtCommit(ctx context.Context, repoURI string, commit string, directory string) ([]GitFile, error)
	RepositoryExists(ctx context.Context, repoURI string) bool
	GetLastCommitSHA(ctx context.Context, repoURI string, branch string) (string, error)
	Clone(ctx context.Context, options CloneOptions) error
}

// HostedRepository adds branch and pull request management offered by hosted providers.
type HostedRepository interface {
	Repository

	CreateOrUpdateBranch(ctx context.Context, repoURI string, baseBranch string, newBranch string) error
	DeleteBranch(ctx context.Context, repoURI string, branch string) error
	DoesBranchExist(ctx context.Context, repoURI string, branch string) (bool, error)

	CreatePullRequest(ctx context.Context, repoURI string, pullRequest PullRequest) (string, error)
	UpdatePullRequest(ctx context.Context, pullRequestURL string, pullRequest PullRequest) error
	GetPullRequest(ctx context.Context, pullRequestURL string) (PullRequest, error)
	GetPullRequestCommits(ctx context.Context, pullRequestURL string) ([]Commit, error)
	MergePullRequest(ctx context.Context, pullRequestURL string, parameters MergePullRequestParameters, commitMessage string) error
	CommentPullRequest(ctx context.Context, pullRequestURL string, message string) error
	CreateOrUpdatePullRequestComment(ctx context.Context, pullRequestURL string, message string) error
	DeletePullRequestBranch(ctx context.Context, pullRequestURL string) error
	GetPullRequestChecks(ctx context.Context, pullRequestURL string) ([]Check, error)
	GetLatestPullRequestReviews(ctx context.Context, pullRequestURL string) ([]Review, error)
}

// TokenProvider resolves the access token used for a repository URL.
type TokenProvider interface {
	TokenForRepository(ctx context.Context, repoURI string) (string, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context, repoURI string) (string, error)

// TokenForRepository calls the wrapped function.
func (function TokenProviderFunc) TokenForRepository(ctx context.Context, repoURI string) (string, error) {
	return function(ctx, repoURI)
}
