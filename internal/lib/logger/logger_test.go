package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ziadkadry99/canteen/internal/config"
	"github.com/ziadkadry99/canteen/internal/lib/logger"
)

func TestNewLocalLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(config.EnvLocal, &buf)

	log.Debug("debug line")

	assert.Contains(t, buf.String(), "debug line")
}

func TestNewProductionDropsTimeAndInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(config.EnvProduction, &buf)

	log.Info("quiet")
	log.Warn("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.NotContains(t, out, `"time"`)
}

func TestNewUnknownEnvWarns(t *testing.T) {
	var buf bytes.Buffer
	logger.NewWithWriter("staging", &buf)

	assert.Contains(t, buf.String(), "Please specify the value of `env`")
}
