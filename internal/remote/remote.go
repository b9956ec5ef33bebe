package remote

import (
	"context"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
	"github.com/temirov/depflow/internal/versiondetails"
	"github.com/temirov/depflow/internal/vmr"
)

const (
	commonScriptFilesPathConstant            = "eng/common"
	vmrArcadeDirectoryConstant               = "src/arcade"
	dependencyUpdateSeparatorConstant        = "\r\n\r\n"
	commitMessageLinePrefixConstant          = "\n\n - "
	titleSeparatorConstant                   = "\n"
	deleteBranchMessageConstant              = "Deleting branch"
	branchExistsMessageConstant              = "Checking if branch exists"
	checksMessageConstant                    = "Getting status checks for pull request"
	reviewsMessageConstant                   = "Getting reviews for pull request"
	mergingMessageConstant                   = "Merging pull request"
	mergedMessageConstant                    = "Merging pull request succeeded"
	commonScriptsMessageConstant             = "Reading common script files"
	deletePullRequestBranchOperationConstant = "DeletePullRequestBranch"
	deletePullRequestBranchMessageConstant   = "failed to delete head branch for pull request"
	logFieldRepositoryConstant               = "repository"
	logFieldBranchConstant                   = "branch"
	logFieldPullRequestConstant              = "pull_request"
	logFieldCommitConstant                   = "commit"
	logFieldDirectoryConstant                = "directory"
	logFieldFileCountConstant                = "file_count"
)

var dependencyUpdatePattern = regexp.MustCompile(`\[DependencyUpdate\]: <> \(Begin\)([^\[]+)\[DependencyUpdate\]: <> \(End\)`)

// LocationResolver fills dependency locations from the build registry.
type LocationResolver interface {
	ResolveLocations(ctx context.Context, dependencies []*gitprovider.DependencyDetail) error
}

// Dependencies enumerates collaborators used by Remote.
type Dependencies struct {
	Repository gitprovider.Repository
	Resolver   LocationResolver
	Logger     *zap.Logger
}

// Remote wraps a repository backend with dependency-flow operations.
// Pull request operations require a gitprovider.HostedRepository backend.
type Remote struct {
	repository gitprovider.Repository
	resolver   LocationResolver
	logger     *zap.Logger
}

// New constructs a Remote.
func New(dependencies Dependencies) *Remote {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		repository: dependencies.Repository,
		resolver:   dependencies.Resolver,
		logger:     logger,
	}
}

func (remote *Remote) hosted() (gitprovider.HostedRepository, error) {
	hostedRepository, ok := remote.repository.(gitprovider.HostedRepository)
	if !ok {
		return nil, gitprovider.ErrOperationNotSupported
	}
	return hostedRepository, nil
}

// ResolveLocations delegates to the configured LocationResolver.
func (remote *Remote) ResolveLocations(ctx context.Context, dependencies []*gitprovider.DependencyDetail) error {
	if remote.resolver == nil {
		return gitprovider.ErrOperationNotSupported
	}
	return remote.resolver.ResolveLocations(ctx, dependencies)
}

// CreateBranch creates newBranch from baseBranch, moving it when it already exists.
func (remote *Remote) CreateBranch(ctx context.Context, repoURI string, baseBranch string, newBranch string) error {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return hostedError
	}
	return hostedRepository.CreateOrUpdateBranch(ctx, repoURI, baseBranch, newBranch)
}

// DeleteBranch removes a branch.
func (remote *Remote) DeleteBranch(ctx context.Context, repoURI string, branch string) error {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return hostedError
	}
	remote.logger.Info(deleteBranchMessageConstant, zap.String(logFieldRepositoryConstant, repoURI), zap.String(logFieldBranchConstant, branch))
	return hostedRepository.DeleteBranch(ctx, repoURI, branch)
}

// BranchExists reports whether branch exists.
func (remote *Remote) BranchExists(ctx context.Context, repoURI string, branch string) (bool, error) {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return false, hostedError
	}
	remote.logger.Info(branchExistsMessageConstant, zap.String(logFieldRepositoryConstant, repoURI), zap.String(logFieldBranchConstant, branch))
	return hostedRepository.DoesBranchExist(ctx, repoURI, branch)
}

// CreatePullRequest opens a pull request and returns its API URL.
func (remote *Remote) CreatePullRequest(ctx context.Context, repoURI string, pullRequest gitprovider.PullRequest) (string, error) {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return "", hostedError
	}
	return hostedRepository.CreatePullRequest(ctx, repoURI, pullRequest)
}

// UpdatePullRequest changes the title or description of a pull request.
func (remote *Remote) UpdatePullRequest(ctx context.Context, pullRequestURL string, pullRequest gitprovider.PullRequest) error {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return hostedError
	}
	return hostedRepository.UpdatePullRequest(ctx, pullRequestURL, pullRequest)
}

// GetPullRequest reads a pull request.
func (remote *Remote) GetPullRequest(ctx context.Context, pullRequestURL string) (gitprovider.PullRequest, error) {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return gitprovider.PullRequest{}, hostedError
	}
	return hostedRepository.GetPullRequest(ctx, pullRequestURL)
}

// MergePullRequest merges a dependency update pull request. The commit message
// is the pull request title, followed by the dependency update blocks of its
// description and the messages of commits not authored by the bot.
func (remote *Remote) MergePullRequest(ctx context.Context, pullRequestURL string, parameters gitprovider.MergePullRequestParameters) error {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return hostedError
	}
	remote.logger.Info(mergingMessageConstant, zap.String(logFieldPullRequestConstant, pullRequestURL))

	pullRequest, pullRequestError := hostedRepository.GetPullRequest(ctx, pullRequestURL)
	if pullRequestError != nil {
		return pullRequestError
	}
	commits, commitsError := hostedRepository.GetPullRequestCommits(ctx, pullRequestURL)
	if commitsError != nil {
		return commitsError
	}

	commitMessage := BuildMergeCommitMessage(pullRequest, commits)
	if mergeError := hostedRepository.MergePullRequest(ctx, pullRequestURL, parameters, commitMessage); mergeError != nil {
		return mergeError
	}
	remote.logger.Info(mergedMessageConstant, zap.String(logFieldPullRequestConstant, pullRequestURL))
	return nil
}

// BuildMergeCommitMessage composes the squash message for a dependency update.
func BuildMergeCommitMessage(pullRequest gitprovider.PullRequest, commits []gitprovider.Commit) string {
	updates := []string{}
	for _, match := range dependencyUpdatePattern.FindAllStringSubmatch(pullRequest.Description, -1) {
		updates = append(updates, strings.ReplaceAll(strings.TrimSpace(match[1]), "*", ""))
	}

	var builder strings.Builder
	builder.WriteString(pullRequest.Title)
	builder.WriteString(titleSeparatorConstant)
	builder.WriteString(strings.Join(updates, dependencyUpdateSeparatorConstant))
	for _, commit := range commits {
		if commit.Author == gitprovider.BotName {
			continue
		}
		builder.WriteString(commitMessageLinePrefixConstant)
		builder.WriteString(commit.Message)
	}
	return builder.String()
}

// CommentPullRequest posts a comment on a pull request.
func (remote *Remote) CommentPullRequest(ctx context.Context, pullRequestURL string, message string) error {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return hostedError
	}
	return hostedRepository.CommentPullRequest(ctx, pullRequestURL, message)
}

// CreateOrUpdatePullRequestComment keeps a single status comment current.
func (remote *Remote) CreateOrUpdatePullRequestComment(ctx context.Context, pullRequestURL string, message string) error {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return hostedError
	}
	return hostedRepository.CreateOrUpdatePullRequestComment(ctx, pullRequestURL, message)
}

// DeletePullRequestBranch removes the head branch of a pull request.
func (remote *Remote) DeletePullRequestBranch(ctx context.Context, pullRequestURL string) error {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return hostedError
	}
	if deleteError := hostedRepository.DeletePullRequestBranch(ctx, pullRequestURL); deleteError != nil {
		return gitprovider.OperationError{
			Operation: deletePullRequestBranchOperationConstant,
			Message:   deletePullRequestBranchMessageConstant + " " + pullRequestURL,
			Cause:     deleteError,
		}
	}
	return nil
}

// GetPullRequestReviews returns the latest review of each reviewer.
func (remote *Remote) GetPullRequestReviews(ctx context.Context, pullRequestURL string) ([]gitprovider.Review, error) {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return nil, hostedError
	}
	remote.logger.Info(reviewsMessageConstant, zap.String(logFieldPullRequestConstant, pullRequestURL))
	return hostedRepository.GetLatestPullRequestReviews(ctx, pullRequestURL)
}

// GetPullRequestChecks returns the statuses and check runs of a pull request.
func (remote *Remote) GetPullRequestChecks(ctx context.Context, pullRequestURL string) ([]gitprovider.Check, error) {
	hostedRepository, hostedError := remote.hosted()
	if hostedError != nil {
		return nil, hostedError
	}
	remote.logger.Info(checksMessageConstant, zap.String(logFieldPullRequestConstant, pullRequestURL))
	return hostedRepository.GetPullRequestChecks(ctx, pullRequestURL)
}

// GetFileContents reads a file at ref.
func (remote *Remote) GetFileContents(ctx context.Context, filePath string, repoURI string, ref string) (string, error) {
	return remote.repository.GetFileContents(ctx, filePath, repoURI, ref)
}

// GetVersionDetails parses eng/Version.Details.xml at ref.
func (remote *Remote) GetVersionDetails(ctx context.Context, repoURI string, ref string) (versiondetails.VersionDetails, error) {
	content, contentError := remote.repository.GetFileContents(ctx, versiondetails.FilePath, repoURI, ref)
	if contentError != nil {
		return versiondetails.VersionDetails{}, contentError
	}
	return versiondetails.Parse(content, versiondetails.ParseOptions{})
}

// GetDependencies lists the dependencies declared at ref. A non-empty name
// keeps only dependencies with that name, compared without regard to case.
func (remote *Remote) GetDependencies(ctx context.Context, repoURI string, ref string, name string) ([]gitprovider.DependencyDetail, error) {
	details, detailsError := remote.GetVersionDetails(ctx, repoURI, ref)
	if detailsError != nil {
		return nil, detailsError
	}
	if len(name) == 0 {
		return details.Dependencies, nil
	}
	filtered := []gitprovider.DependencyDetail{}
	for _, dependency := range details.Dependencies {
		if strings.EqualFold(dependency.Name, name) {
			filtered = append(filtered, dependency)
		}
	}
	return filtered, nil
}

// GetSourceDependency returns the VMR source recorded in Version.Details.xml, or nil.
func (remote *Remote) GetSourceDependency(ctx context.Context, repoURI string, ref string) (*versiondetails.SourceDependency, error) {
	details, detailsError := remote.GetVersionDetails(ctx, repoURI, ref)
	if detailsError != nil {
		return nil, detailsError
	}
	return details.Source, nil
}

// GetSourceManifest reads src/source-manifest.json from a VMR.
func (remote *Remote) GetSourceManifest(ctx context.Context, vmrURI string, ref string) (vmr.SourceManifest, error) {
	content, contentError := remote.repository.GetFileContents(ctx, vmr.SourceManifestPath, vmrURI, ref)
	if contentError != nil {
		return vmr.SourceManifest{}, contentError
	}
	return vmr.ParseSourceManifest(content)
}

// GetSourceMappings reads src/source-mappings.json from a VMR.
func (remote *Remote) GetSourceMappings(ctx context.Context, vmrURI string, ref string) ([]vmr.SourceMapping, error) {
	content, contentError := remote.repository.GetFileContents(ctx, vmr.SourceMappingsPath, vmrURI, ref)
	if contentError != nil {
		return nil, contentError
	}
	mappings, parseError := vmr.ParseSourceMappings(content)
	if parseError != nil {
		return nil, parseError
	}
	return mappings.Mappings, nil
}

// GetCommonScriptFiles reads eng/common at commit. In a VMR the arcade copy
// under src/arcade is read instead.
func (remote *Remote) GetCommonScriptFiles(ctx context.Context, repoURI string, commit string, repoIsVMR bool) ([]gitprovider.GitFile, error) {
	directory := commonScriptFilesPathConstant
	if repoIsVMR {
		directory = path.Join(vmrArcadeDirectoryConstant, commonScriptFilesPathConstant)
	}
	files, filesError := remote.repository.GetFilesAtCommit(ctx, repoURI, commit, directory)
	if filesError != nil {
		return nil, filesError
	}
	remote.logger.Info(
		commonScriptsMessageConstant,
		zap.String(logFieldRepositoryConstant, repoURI),
		zap.String(logFieldCommitConstant, commit),
		zap.String(logFieldDirectoryConstant, directory),
		zap.Int(logFieldFileCountConstant, len(files)),
	)
	return files, nil
}

// Clone checks a repository out to disk.
func (remote *Remote) Clone(ctx context.Context, options gitprovider.CloneOptions) error {
	return remote.repository.Clone(ctx, options)
}

// RepositoryExists reports whether repoURI names an existing repository.
func (remote *Remote) RepositoryExists(ctx context.Context, repoURI string) bool {
	if len(strings.TrimSpace(repoURI)) == 0 || remote.repository == nil {
		return false
	}
	return remote.repository.RepositoryExists(ctx, repoURI)
}

// GetLatestCommit returns the head commit of branch, or "" when it is unknown.
func (remote *Remote) GetLatestCommit(ctx context.Context, repoURI string, branch string) (string, error) {
	return remote.repository.GetLastCommitSHA(ctx, repoURI, branch)
}
