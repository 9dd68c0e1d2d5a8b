// Package config provides configuration management for the export check tool.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (EXPORTCHECK_*)
//	2. A YAML configuration file (EXPORTCHECK_CONFIG, ./config.yaml or ./configs/config.yaml)
//	3. Default values
//
// Nested sections map to underscored names:
//
//	EXPORTCHECK_POLLER_MAX_ATTEMPTS=50
//	EXPORTCHECK_BROWSER_HEADLESS=false
//	EXPORTCHECK_ARTIFACT_DOWNLOAD_TIMEOUT=90s
//
// # Locators
//
// Target URLs and page selectors live in a separate YAML file read by
// LoadLocators. Values are addressed by (section, key); Get reports a
// CONFIG_MISSING AppError for absent values.
//
// # Credentials
//
// The remote login is read from EXPORTCHECK_USER and EXPORTCHECK_PASSWORD by
// LoadCredentials and is redacted whenever formatted or logged.
package config
