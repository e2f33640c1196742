// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logging

import (
	"bytes"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	}()

	var buf bytes.Buffer
	require.NoError(t, Setup("warn", &buf))
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	Component("pipeline").Info("hidden")
	Component("pipeline").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "component=pipeline")

	require.NoError(t, Setup("", nil))
	assert.Equal(t, log.InfoLevel, log.GetLevel())

	assert.Error(t, Setup("loud", nil))
}
