package assets

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/temirov/depflow/internal/buildregistry"
	"github.com/temirov/depflow/internal/gitprovider"
	"github.com/temirov/depflow/internal/metrics"
)

const (
	defaultConcurrencyConstant         = 4
	registrySettingNameConstant        = "registry"
	registryMissingMessageConstant     = "build registry client not configured"
	resolvingLocationsMessageConstant  = "Resolving asset locations"
	dependencyResolvedMessageConstant  = "Resolved dependency locations"
	dependencyUnmatchedMessageConstant = "No build matched dependency commit"
	logFieldDependencyCountConstant    = "dependency_count"
	logFieldDependencyNameConstant     = "dependency"
	logFieldDependencyVersionConstant  = "version"
	logFieldDependencyCommitConstant   = "commit"
	logFieldBuildIDConstant            = "build_id"
	logFieldLocationCountConstant      = "location_count"
)

// Dependencies enumerates collaborators used by Resolver.
type Dependencies struct {
	Registry buildregistry.Client
	Metrics  metrics.Recorder
	Logger   *zap.Logger
}

// Options configures Resolver.
type Options struct {
	Concurrency int
}

// Resolver fills DependencyDetail.Locations from the build registry.
type Resolver struct {
	registry    buildregistry.Client
	metrics     metrics.Recorder
	logger      *zap.Logger
	concurrency int
}

// NewResolver constructs a Resolver.
func NewResolver(dependencies Dependencies, options Options) *Resolver {
	resolver := &Resolver{
		registry:    dependencies.Registry,
		metrics:     metrics.Resolve(dependencies.Metrics),
		logger:      dependencies.Logger,
		concurrency: options.Concurrency,
	}
	if resolver.logger == nil {
		resolver.logger = zap.NewNop()
	}
	if resolver.concurrency <= 0 {
		resolver.concurrency = defaultConcurrencyConstant
	}
	return resolver
}

// ResolveLocations sets Locations on every dependency whose commit matches a
// registry build. Dependencies without a matching build are left untouched.
// The first registry error cancels the remaining work and is returned as is.
func (resolver *Resolver) ResolveLocations(executionContext context.Context, dependencies []*gitprovider.DependencyDetail) error {
	if resolver.registry == nil {
		return gitprovider.ConfigurationError{Setting: registrySettingNameConstant, Message: registryMissingMessageConstant}
	}
	resolver.logger.Debug(resolvingLocationsMessageConstant, zap.Int(logFieldDependencyCountConstant, len(dependencies)))

	builds := newBuildMemo(resolver.registry, resolver.metrics)
	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(resolver.concurrency)

	for _, dependency := range dependencies {
		if dependency == nil {
			continue
		}
		group.Go(func() error {
			return resolver.resolveDependency(groupContext, builds, dependency)
		})
	}
	return group.Wait()
}

func (resolver *Resolver) resolveDependency(executionContext context.Context, builds *buildMemo, dependency *gitprovider.DependencyDetail) error {
	assets, assetsError := resolver.registry.GetAssets(executionContext, buildregistry.AssetQuery{
		Name:    dependency.Name,
		Version: dependency.Version,
	})
	if assetsError != nil {
		return assetsError
	}
	if len(assets) == 0 {
		return nil
	}

	var winner *buildregistry.Asset
	for index := range assets {
		build, buildError := builds.get(executionContext, assets[index].BuildID)
		if buildError != nil {
			return buildError
		}
		if build.Commit != dependency.Commit {
			continue
		}
		if winner == nil || assets[index].BuildID > winner.BuildID {
			winner = &assets[index]
		}
	}

	if winner == nil {
		resolver.metrics.IncDependencyResolved(false)
		resolver.logger.Debug(
			dependencyUnmatchedMessageConstant,
			zap.String(logFieldDependencyNameConstant, dependency.Name),
			zap.String(logFieldDependencyVersionConstant, dependency.Version),
			zap.String(logFieldDependencyCommitConstant, dependency.Commit),
		)
		return nil
	}

	dependency.Locations = nugetFeedLocations(*winner)
	resolver.metrics.IncDependencyResolved(true)
	resolver.logger.Debug(
		dependencyResolvedMessageConstant,
		zap.String(logFieldDependencyNameConstant, dependency.Name),
		zap.Int(logFieldBuildIDConstant, winner.BuildID),
		zap.Int(logFieldLocationCountConstant, len(dependency.Locations)),
	)
	return nil
}

func nugetFeedLocations(asset buildregistry.Asset) []string {
	locations := make([]string, 0, len(asset.Locations))
	for _, location := range asset.Locations {
		if location.IsNugetFeed() {
			locations = append(locations, location.Location)
		}
	}
	return locations
}

// buildMemo fetches each build at most once for the lifetime of one batch.
type buildMemo struct {
	registry buildregistry.Client
	metrics  metrics.Recorder
	group    singleflight.Group
	mutex    sync.Mutex
	builds   map[int]buildregistry.Build
}

func newBuildMemo(registry buildregistry.Client, recorder metrics.Recorder) *buildMemo {
	return &buildMemo{
		registry: registry,
		metrics:  recorder,
		builds:   make(map[int]buildregistry.Build),
	}
}

func (memo *buildMemo) get(executionContext context.Context, buildID int) (buildregistry.Build, error) {
	if build, found := memo.lookup(buildID); found {
		return build, nil
	}

	value, fetchError, _ := memo.group.Do(strconv.Itoa(buildID), func() (any, error) {
		if build, found := memo.lookup(buildID); found {
			return build, nil
		}
		memo.metrics.IncBuildFetch()
		build, buildError := memo.registry.GetBuild(executionContext, buildID)
		if buildError != nil {
			return buildregistry.Build{}, buildError
		}
		memo.mutex.Lock()
		memo.builds[buildID] = build
		memo.mutex.Unlock()
		return build, nil
	})
	if fetchError != nil {
		return buildregistry.Build{}, fetchError
	}
	return value.(buildregistry.Build), nil
}

func (memo *buildMemo) lookup(buildID int) (buildregistry.Build, bool) {
	memo.mutex.Lock()
	defer memo.mutex.Unlock()
	build, found := memo.builds[buildID]
	return build, found
}
