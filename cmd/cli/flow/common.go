package flow

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	yamlIndentConstant                    = 2
	serviceProviderMissingMessageConstant = "dependency service provider not configured"
)

// ErrServiceProviderNotConfigured indicates a builder without a ServiceProvider.
var ErrServiceProviderNotConfigured = errors.New(serviceProviderMissingMessageConstant)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// DependencyService covers the remote operations used by the flow commands.
type DependencyService interface {
	GetDependencies(ctx context.Context, repoURI string, ref string, name string) ([]gitprovider.DependencyDetail, error)
	ResolveLocations(ctx context.Context, dependencies []*gitprovider.DependencyDetail) error
	GetPullRequestReviews(ctx context.Context, pullRequestURL string) ([]gitprovider.Review, error)
}

// ServiceProvider builds the DependencyService once configuration is loaded.
type ServiceProvider func() (DependencyService, error)

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveService(provider ServiceProvider) (DependencyService, error) {
	if provider == nil {
		return nil, ErrServiceProviderNotConfigured
	}
	return provider()
}

func pointersTo(dependencies []gitprovider.DependencyDetail) []*gitprovider.DependencyDetail {
	pointers := make([]*gitprovider.DependencyDetail, len(dependencies))
	for index := range dependencies {
		pointers[index] = &dependencies[index]
	}
	return pointers
}

func writeYAML(output io.Writer, value any) error {
	encoder := yaml.NewEncoder(output)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(value); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}
