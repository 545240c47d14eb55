package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// LoggerTestSuite defines a test suite for the logger package
type LoggerTestSuite struct {
	suite.Suite
	buffer *bytes.Buffer
}

// SetupTest runs before each test
func (suite *LoggerTestSuite) SetupTest() {
	suite.buffer = &bytes.Buffer{}
}

// TestNewLoggerReturnsLogger tests construction across configurations
func (suite *LoggerTestSuite) TestNewLoggerReturnsLogger() {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		for _, format := range []string{"json", "text"} {
			assert.NotNil(suite.T(), NewLogger(level, format))
		}
	}
}

// TestLevelFiltering tests that messages below the configured level are dropped
func (suite *LoggerTestSuite) TestLevelFiltering() {
	log := newLogger("warn", "text", suite.buffer)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := suite.buffer.String()
	assert.NotContains(suite.T(), out, "debug message")
	assert.NotContains(suite.T(), out, "info message")
	assert.Contains(suite.T(), out, "warn message")
	assert.Contains(suite.T(), out, "error message")
}

// TestInvalidLevelDefaultsToInfo tests the fallback level
func (suite *LoggerTestSuite) TestInvalidLevelDefaultsToInfo() {
	log := newLogger("not-a-level", "text", suite.buffer)

	log.Debug("hidden")
	log.Info("visible")

	out := suite.buffer.String()
	assert.NotContains(suite.T(), out, "hidden")
	assert.Contains(suite.T(), out, "visible")
}

// TestJSONFormat tests that json output parses and carries the message
func (suite *LoggerTestSuite) TestJSONFormat() {
	log := newLogger("info", "json", suite.buffer)

	log.Infof("request %s completed", "req-42")

	line := strings.TrimSpace(suite.buffer.String())
	var entry map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal([]byte(line), &entry))
	assert.Equal(suite.T(), "request req-42 completed", entry["msg"])
	assert.Equal(suite.T(), "info", entry["level"])
	assert.NotEmpty(suite.T(), entry["time"])
}

// TestFormattedVariants tests the printf-style methods
func (suite *LoggerTestSuite) TestFormattedVariants() {
	log := newLogger("debug", "text", suite.buffer)

	log.Debugf("claim race lost by %s", "tech-2")
	log.Warnf("retry %d of %d", 2, 3)
	log.Errorf("store error: %v", "throttled")

	out := suite.buffer.String()
	assert.Contains(suite.T(), out, "claim race lost by tech-2")
	assert.Contains(suite.T(), out, "retry 2 of 3")
	assert.Contains(suite.T(), out, "store error: throttled")
}

func TestLoggerTestSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}
