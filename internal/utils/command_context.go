package utils

import "context"

type commandContextKey string

const loadedConfigurationContextKeyConstant = commandContextKey("loadedConfiguration")

// CommandContextAccessor stores command-scoped values on a context.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithLoadedConfiguration attaches configuration metadata to parentContext.
func (accessor CommandContextAccessor) WithLoadedConfiguration(parentContext context.Context, loaded LoadedConfiguration) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, loadedConfigurationContextKeyConstant, loaded)
}

// LoadedConfiguration returns the metadata attached by WithLoadedConfiguration.
func (accessor CommandContextAccessor) LoadedConfiguration(executionContext context.Context) (LoadedConfiguration, bool) {
	if executionContext == nil {
		return LoadedConfiguration{}, false
	}
	loaded, available := executionContext.Value(loadedConfigurationContextKeyConstant).(LoadedConfiguration)
	return loaded, available
}
