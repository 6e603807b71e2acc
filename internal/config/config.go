// Package config provides functionality for managing configuration options
// for the console using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
)

// Options holds the configuration values for the console.
type Options struct {
	// ServerURL is the base URL of the control center (http(s)://host:port).
	ServerURL string

	// StateFile is the path of the persisted client state (token, user,
	// preferences).
	StateFile string

	// Lang is the startup display language ("en" or "zh").
	Lang string

	// LogLevel is the zap log level.
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.ServerURL, "s", "http://localhost:8080", "control center base URL")
	flag.StringVar(&options.StateFile, "state", "prts_state.json", "path to persisted client state")
	flag.StringVar(&options.Lang, "lang", "zh", "display language: en or zh")
	flag.StringVar(&options.LogLevel, "log-level", "info", "log level")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("PRTS_CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverURL := os.Getenv("PRTS_SERVER_URL"); serverURL != "" {
		options.ServerURL = serverURL
	}
	if stateFile := os.Getenv("PRTS_STATE_FILE"); stateFile != "" {
		options.StateFile = stateFile
	}
	if lang := os.Getenv("PRTS_LANG"); lang != "" {
		options.Lang = lang
	}

	return options
}
