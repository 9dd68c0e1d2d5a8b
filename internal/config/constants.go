package config

import "time"

// Application constants
const (
	AppName    = "Export Check"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable read by the application
	EnvPrefix = "EXPORTCHECK"

	// Poller defaults
	DefaultRetryInterval   = 4 * time.Second
	DefaultRefreshInterval = 6 * time.Second
	DefaultMaxPollAttempts = 50

	// Ingestion defaults
	DefaultSniffBytes = 8192

	// File Paths (relative to the base directory)
	DefaultDataDir      = "data"
	DefaultLogsDir      = "logs"
	DefaultDownloadsDir = "data/downloads"
	DefaultReportsDir   = "data/reports"

	// Report file permissions
	ReportFileMode = 0o644
	DirMode        = 0o755
)

// Locator sections
const (
	SectionCert        = "cert"
	SectionProd        = "prod"
	SectionCredentials = "credentials"
	SectionLocators    = "locators"
)
