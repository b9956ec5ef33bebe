package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/depflow/internal/utils"
)

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, available := accessor.LoadedConfiguration(context.Background())
	require.False(testInstance, available)

	executionContext := accessor.WithLoadedConfiguration(context.Background(), utils.LoadedConfiguration{ConfigFileUsed: "/etc/depflow/config.yaml"})
	loaded, available := accessor.LoadedConfiguration(executionContext)
	require.True(testInstance, available)
	require.Equal(testInstance, "/etc/depflow/config.yaml", loaded.ConfigFileUsed)
}
