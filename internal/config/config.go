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

// Package config loads the two-section INI configuration shared by the
// daemon and the CLI, applies environment overrides, and validates
// required keys. Search order: $CONFIG_PATH, then
// $HOME/.config/reddit-scheduler/config.ini.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"reddit-scheduler/pkg/redact"
)

// RedditAPI holds the credentials for the script-type Reddit OAuth app.
type RedditAPI struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

// Config is the fully resolved daemon configuration.
type Config struct {
	// [General]
	Port         uint16  // RPC listen port, required
	PostInterval float64 // poster step interval in seconds, required
	DryRun       bool    // required; OR-ed with the DRY_RUN env var
	Debug        bool    // optional; OR-ed with the DEBUG env var
	MetricsPort  uint16  // optional; 0 disables the /metrics listener

	// [RedditAPI]
	Reddit RedditAPI

	// DBPath is not an INI key: DB_PATH env var or the default location.
	DBPath string
}

// SearchPaths returns the config file locations in lookup order.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		paths = append(paths, p)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reddit-scheduler", "config.ini"))
	}
	return paths
}

// DefaultDBPath returns the database location used when DB_PATH is unset.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "database.sqlite"
	}
	return filepath.Join(home, ".config", "reddit-scheduler", "database.sqlite")
}

// Load finds the config file on the search path and parses it.
func Load() (*Config, error) {
	paths := SearchPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return nil, fmt.Errorf("could not find a config file, search path is: %s",
		strings.Join(paths, ", "))
}

// LoadFile parses and validates a specific INI file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// viper flattens INI sections into dotted lowercase keys.
	required := []string{
		"general.port",
		"general.postinterval",
		"general.dryrun",
		"redditapi.username",
		"redditapi.password",
		"redditapi.clientid",
		"redditapi.clientsecret",
	}
	for _, key := range required {
		if !v.IsSet(key) || v.GetString(key) == "" {
			return nil, fmt.Errorf("config file %s missing required key %q", path, key)
		}
	}

	port := v.GetInt("general.port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("config file %s: Port must be in 1..65535, got %d", path, port)
	}
	metricsPort := v.GetInt("general.metricsport")
	if metricsPort < 0 || metricsPort > 65535 {
		return nil, fmt.Errorf("config file %s: MetricsPort must be in 0..65535, got %d", path, metricsPort)
	}
	interval := v.GetFloat64("general.postinterval")
	if interval <= 0 {
		return nil, fmt.Errorf("config file %s: PostInterval must be positive, got %v", path, interval)
	}

	cfg := &Config{
		Port:         uint16(port),
		PostInterval: interval,
		DryRun:       v.GetBool("general.dryrun") || os.Getenv("DRY_RUN") != "",
		Debug:        v.GetBool("general.debug") || os.Getenv("DEBUG") != "",
		MetricsPort:  uint16(metricsPort),
		Reddit: RedditAPI{
			Username:     v.GetString("redditapi.username"),
			Password:     v.GetString("redditapi.password"),
			ClientID:     v.GetString("redditapi.clientid"),
			ClientSecret: v.GetString("redditapi.clientsecret"),
		},
		DBPath: DefaultDBPath(),
	}
	if p := os.Getenv("DB_PATH"); p != "" {
		cfg.DBPath = p
	}
	return cfg, nil
}

// String renders the resolved configuration with credentials masked.
// Used by the -print-config debugging flag.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Port          = %d\n", c.Port)
	fmt.Fprintf(&b, "PostInterval  = %v\n", c.PostInterval)
	fmt.Fprintf(&b, "DryRun        = %v\n", c.DryRun)
	fmt.Fprintf(&b, "Debug         = %v\n", c.Debug)
	fmt.Fprintf(&b, "MetricsPort   = %d\n", c.MetricsPort)
	fmt.Fprintf(&b, "DBPath        = %s\n", c.DBPath)
	fmt.Fprintf(&b, "Username      = %s\n", c.Reddit.Username)
	fmt.Fprintf(&b, "Password      = %s\n", redact.Password(c.Reddit.Password))
	fmt.Fprintf(&b, "ClientId      = %s\n", redact.Secret(c.Reddit.ClientID))
	fmt.Fprintf(&b, "ClientSecret  = %s\n", redact.Secret(c.Reddit.ClientSecret))
	return b.String()
}
