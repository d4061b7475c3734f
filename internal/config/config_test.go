// Reddit-scheduler is a service that submits scheduled posts to Reddit.
// Copyright (C) 2026 Reddit-scheduler contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validINI = `[General]
Port          = 50051
PostInterval  = 5.0
DryRun        = false
Debug         = true

[RedditAPI]
Username      = alice
Password      = hunter2secret
ClientId      = abcdef123456
ClientSecret  = 654321fedcba
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, validINI))
	require.NoError(t, err)

	assert.Equal(t, uint16(50051), cfg.Port)
	assert.Equal(t, 5.0, cfg.PostInterval)
	assert.False(t, cfg.DryRun)
	assert.True(t, cfg.Debug)
	assert.Equal(t, uint16(0), cfg.MetricsPort)
	assert.Equal(t, "alice", cfg.Reddit.Username)
	assert.Equal(t, "hunter2secret", cfg.Reddit.Password)
	assert.Equal(t, "abcdef123456", cfg.Reddit.ClientID)
	assert.Equal(t, "654321fedcba", cfg.Reddit.ClientSecret)
}

func TestLoadFileMissingRequiredKey(t *testing.T) {
	ini := `[General]
Port = 50051
DryRun = false

[RedditAPI]
Username = alice
Password = x
ClientId = y
ClientSecret = z
`
	_, err := LoadFile(writeConfig(t, ini))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postinterval")
}

func TestLoadFileInvalidPort(t *testing.T) {
	ini := `[General]
Port = 123456
PostInterval = 5
DryRun = true

[RedditAPI]
Username = a
Password = b
ClientId = c
ClientSecret = d
`
	_, err := LoadFile(writeConfig(t, ini))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DRY_RUN", "1")
	t.Setenv("DB_PATH", "/tmp/other.sqlite")

	cfg, err := LoadFile(writeConfig(t, validINI))
	require.NoError(t, err)
	assert.True(t, cfg.DryRun, "DRY_RUN env must OR into DryRun")
	assert.Equal(t, "/tmp/other.sqlite", cfg.DBPath)
}

func TestLoadUsesConfigPathEnv(t *testing.T) {
	path := writeConfig(t, validINI)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint16(50051), cfg.Port)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.ini"))
	t.Setenv("HOME", t.TempDir())

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search path")
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, validINI))
	require.NoError(t, err)

	out := cfg.String()
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "hunter2secret")
	assert.NotContains(t, out, "654321fedcba")
	assert.Contains(t, out, "[REDACTED]")
}
