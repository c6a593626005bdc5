// Copyright 2022 VectorSQL
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGlobalLoggerDefault(t *testing.T) {
	require.NotNil(t, GetGlobalLogger())
}

func TestSetGlobalLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetGlobalLogger(zap.New(core))
	defer SetupMOLogger(&LogConfig{Level: "info", Format: "console"})

	Info("hello", zap.Int("n", 3))
	Warnf("warn %d", 7)
	Debug("dropped at info level")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "hello", entries[0].Message)
	require.Equal(t, "warn 7", entries[1].Message)
}

func TestSetupLevels(t *testing.T) {
	SetupMOLogger(&LogConfig{Level: "error", Format: "json"})
	require.False(t, GetGlobalLogger().Core().Enabled(zap.InfoLevel))
	SetupMOLogger(&LogConfig{Level: "debug", Format: "console"})
	require.True(t, GetGlobalLogger().Core().Enabled(zap.DebugLevel))
}
