package logging_test

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/wot-servient/pkg/logging"
)

func TestLogging(t *testing.T) {
	logFile := ""

	require.NoError(t, logging.SetLogging("info", logFile))
	logrus.Info("Hello info")
	require.NoError(t, logging.SetLogging("debug", logFile))
	logrus.Debug("Hello debug")
	require.NoError(t, logging.SetLogging("warn", logFile))
	logrus.Warn("Hello warn")
	require.NoError(t, logging.SetLogging("error", logFile))
	logrus.Error("Hello error")
}

func TestLoggingToFile(t *testing.T) {
	logFile := t.TempDir() + "/test.log"
	require.NoError(t, logging.SetLogging("info", logFile))
	logrus.Info("Hello file")
	assert.FileExists(t, logFile)
}

func TestLoggingBadFile(t *testing.T) {
	logFile := "/nonexistent-dir/cantloghere.log"
	err := logging.SetLogging("info", logFile)
	assert.Error(t, err)
	os.Remove(logFile)
}
