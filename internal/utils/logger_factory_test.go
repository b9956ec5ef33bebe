package utils_test

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/utils"
)

const testLogMessageConstant = "resolving dependency locations"

// captureStandardError redirects os.Stderr while build constructs a logger,
// since zap binds the "stderr" sink at build time.
func captureStandardError(testInstance *testing.T, build func() (*zap.Logger, error), emit func(*zap.Logger)) (string, error) {
	testInstance.Helper()
	pipeReader, pipeWriter, pipeError := os.Pipe()
	require.NoError(testInstance, pipeError)

	originalStandardError := os.Stderr
	os.Stderr = pipeWriter
	logger, buildError := build()
	os.Stderr = originalStandardError

	if buildError == nil {
		emit(logger)
		if syncError := logger.Sync(); syncError != nil {
			require.True(testInstance, errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL))
		}
	}
	require.NoError(testInstance, pipeWriter.Close())
	captured, readError := io.ReadAll(pipeReader)
	require.NoError(testInstance, readError)
	require.NoError(testInstance, pipeReader.Close())
	return strings.TrimSpace(string(captured)), buildError
}

func TestLoggerFactoryStructuredOutput(testInstance *testing.T) {
	factory := utils.NewLoggerFactory()
	output, buildError := captureStandardError(testInstance,
		func() (*zap.Logger, error) { return factory.CreateLogger(utils.LogLevelInfo, utils.LogFormatStructured) },
		func(logger *zap.Logger) {
			logger.Debug("suppressed")
			logger.Info(testLogMessageConstant, zap.Int("dependency_count", 3))
		},
	)
	require.NoError(testInstance, buildError)

	var entry map[string]any
	require.NoError(testInstance, json.Unmarshal([]byte(output), &entry))
	require.Equal(testInstance, "info", entry["level"])
	require.Equal(testInstance, testLogMessageConstant, entry["msg"])
	require.EqualValues(testInstance, 3, entry["dependency_count"])
}

func TestLoggerFactoryConsoleOutput(testInstance *testing.T) {
	factory := utils.NewLoggerFactory()
	output, buildError := captureStandardError(testInstance,
		func() (*zap.Logger, error) { return factory.CreateLogger(utils.LogLevelDebug, utils.LogFormatConsole) },
		func(logger *zap.Logger) { logger.Debug(testLogMessageConstant) },
	)
	require.NoError(testInstance, buildError)
	require.False(testInstance, json.Valid([]byte(output)))
	require.Contains(testInstance, output, "DEBUG")
	require.Contains(testInstance, output, testLogMessageConstant)
}

func TestLoggerFactoryNormalizesSettings(testInstance *testing.T) {
	factory := utils.NewLoggerFactory()
	output, buildError := captureStandardError(testInstance,
		func() (*zap.Logger, error) { return factory.CreateLogger(utils.LogLevel(" WARN "), utils.LogFormat("Structured")) },
		func(logger *zap.Logger) { logger.Info(testLogMessageConstant) },
	)
	require.NoError(testInstance, buildError)
	require.Empty(testInstance, output)
}

func TestLoggerFactoryAcceptsEverySupportedSetting(testInstance *testing.T) {
	factory := utils.NewLoggerFactory()
	for _, level := range utils.SupportedLogLevels {
		for _, format := range utils.SupportedLogFormats {
			logger, buildError := factory.CreateLogger(utils.LogLevel(level), utils.LogFormat(format))
			require.NoError(testInstance, buildError, "%s/%s", level, format)
			require.NotNil(testInstance, logger)
		}
	}
}

func TestLoggerFactoryRejectsUnsupportedSettings(testInstance *testing.T) {
	testCases := []struct {
		name          string
		level         utils.LogLevel
		format        utils.LogFormat
		expectedError string
	}{
		{name: "level", level: utils.LogLevel("trace"), format: utils.LogFormatStructured, expectedError: "unsupported log level: trace"},
		{name: "format", level: utils.LogLevelInfo, format: utils.LogFormat("xml"), expectedError: "unsupported log format: xml"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			logger, buildError := utils.NewLoggerFactory().CreateLogger(testCase.level, testCase.format)
			require.EqualError(subTest, buildError, testCase.expectedError)
			require.Nil(subTest, logger)
		})
	}
}
