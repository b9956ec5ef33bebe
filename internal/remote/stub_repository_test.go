package remote_test

import (
	"context"

	"github.com/temirov/depflow/internal/gitprovider"
)

type fileKey struct {
	path string
	ref  string
}

type stubRepository struct {
	files         map[fileKey]string
	directories   map[string][]gitprovider.GitFile
	existing      map[string]bool
	lastCommit    string
	requestedDirs []string
	clones        []gitprovider.CloneOptions
	existsCalls   int
}

func (repository *stubRepository) GetFileContents(_ context.Context, filePath string, _ string, ref string) (string, error) {
	content, found := repository.files[fileKey{path: filePath, ref: ref}]
	if !found {
		return "", gitprovider.FileNotFoundError{FilePath: filePath, Ref: ref}
	}
	return content, nil
}

func (repository *stubRepository) GetFilesAtCommit(_ context.Context, _ string, _ string, directory string) ([]gitprovider.GitFile, error) {
	repository.requestedDirs = append(repository.requestedDirs, directory)
	return repository.directories[directory], nil
}

func (repository *stubRepository) RepositoryExists(_ context.Context, repoURI string) bool {
	repository.existsCalls++
	return repository.existing[repoURI]
}

func (repository *stubRepository) GetLastCommitSHA(context.Context, string, string) (string, error) {
	return repository.lastCommit, nil
}

func (repository *stubRepository) Clone(_ context.Context, options gitprovider.CloneOptions) error {
	repository.clones = append(repository.clones, options)
	return nil
}

type stubHostedRepository struct {
	stubRepository
	pullRequest     gitprovider.PullRequest
	commits         []gitprovider.Commit
	mergeMessages   []string
	mergeParameters []gitprovider.MergePullRequestParameters
	deleteBranchErr error
	createdBranches []string
	deletedBranches []string
	comments        []string
	reviews         []gitprovider.Review
	checks          []gitprovider.Check
}

func (repository *stubHostedRepository) CreateOrUpdateBranch(_ context.Context, _ string, baseBranch string, newBranch string) error {
	repository.createdBranches = append(repository.createdBranches, baseBranch+"->"+newBranch)
	return nil
}

func (repository *stubHostedRepository) DeleteBranch(_ context.Context, _ string, branch string) error {
	repository.deletedBranches = append(repository.deletedBranches, branch)
	return nil
}

func (repository *stubHostedRepository) DoesBranchExist(_ context.Context, _ string, branch string) (bool, error) {
	return branch == "main", nil
}

func (repository *stubHostedRepository) CreatePullRequest(context.Context, string, gitprovider.PullRequest) (string, error) {
	return "https://api.github.com/repos/dotnet/arcade/pulls/1", nil
}

func (repository *stubHostedRepository) UpdatePullRequest(context.Context, string, gitprovider.PullRequest) error {
	return nil
}

func (repository *stubHostedRepository) GetPullRequest(context.Context, string) (gitprovider.PullRequest, error) {
	return repository.pullRequest, nil
}

func (repository *stubHostedRepository) GetPullRequestCommits(context.Context, string) ([]gitprovider.Commit, error) {
	return repository.commits, nil
}

func (repository *stubHostedRepository) MergePullRequest(_ context.Context, _ string, parameters gitprovider.MergePullRequestParameters, commitMessage string) error {
	repository.mergeParameters = append(repository.mergeParameters, parameters)
	repository.mergeMessages = append(repository.mergeMessages, commitMessage)
	return nil
}

func (repository *stubHostedRepository) CommentPullRequest(_ context.Context, _ string, message string) error {
	repository.comments = append(repository.comments, message)
	return nil
}

func (repository *stubHostedRepository) CreateOrUpdatePullRequestComment(_ context.Context, _ string, message string) error {
	repository.comments = append(repository.comments, message)
	return nil
}

func (repository *stubHostedRepository) DeletePullRequestBranch(context.Context, string) error {
	return repository.deleteBranchErr
}

func (repository *stubHostedRepository) GetPullRequestChecks(context.Context, string) ([]gitprovider.Check, error) {
	return repository.checks, nil
}

func (repository *stubHostedRepository) GetLatestPullRequestReviews(context.Context, string) ([]gitprovider.Review, error) {
	return repository.reviews, nil
}

var _ gitprovider.HostedRepository = (*stubHostedRepository)(nil)
