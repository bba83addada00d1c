package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	Addr        string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("WHASTAPWEB_CONFIG", ""),
		"Path to configuration file (env: WHASTAPWEB_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("WHASTAPWEB_CONFIG", ""),
		"Path to configuration file (env: WHASTAPWEB_CONFIG)")

	flag.StringVar(&cfg.Addr, "addr", "",
		"Listen address, overrides configuration")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("WHASTAPWEB_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: WHASTAPWEB_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("WHASTAPWEB_LOG_FORMAT", "json"),
		"Log format: json, text (env: WHASTAPWEB_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - HTTP gateway for WhatsApp-style messaging sessions

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with custom config
  %s --config=/etc/whastapweb/config.yaml

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Run with environment variables
  export WHASTAPWEB_CONFIG=/etc/whastapweb/config.yaml
  export WHASTAPWEB_API_KEYS=key-one,key-two
  %s

  # Validate configuration only
  %s --config=/etc/whastapweb/config.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
