package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "exportcheck/internal/errors"
)

// Locators is the section -> key -> value store for target URLs and element
// selectors. Selectors are XPath expressions. Section and key lookups are
// case-insensitive.
type Locators struct {
	sections map[string]map[string]string
}

// NewLocators creates an empty locator store
func NewLocators() *Locators {
	return &Locators{sections: make(map[string]map[string]string)}
}

// DefaultLocators returns the selectors of the remote application's pages.
// Target URLs have no defaults and must come from the locator file.
func DefaultLocators() *Locators {
	l := NewLocators()
	for key, value := range map[string]string{
		"preloader":               "//div[contains(@class,'ajax_preloader')]",
		"username":                "//*[@id='edit-name']",
		"password":                "//*[@id='edit-pass']",
		"submit":                  "//*[@id='edit-submit']",
		"reason_textbox":          "//*[@id='reason_textbox']",
		"customer_picker":         "//*[@id='select-customer']",
		"customer_option":         "//*[contains(text(), {customer})]",
		"sidenav_toggle":          "//*[@data-target='sidenav_slide_out']",
		"contact_log_tab":         "//a[@id='contact_log_tab']",
		"contact_bulk_filter":     "//*[@data-target='datatable_bulk_filter_0_contact_log']",
		"sticket_log_tab":         "//a[@id='sticket_log_tab']",
		"sticket_bulk_filter":     "//*[@data-target='datatable_bulk_filter_0_sticket_log']",
		"export_all_csv":          "//a[contains(text(), 'Export all to CSV')]",
		"confirm_yes":             "//a[normalize-space(text())='YES']",
		"dashboard_link":          "//a[@id='data_validate']",
		"dashboard_customer_cell": "//tr[@role='row' and contains(@class,'odd')][1]/td[4]",
		"dashboard_export_type":   "(//td[contains(@class, 'export-dashboard-row') and contains(@class, 'export-dashboard-row_pt')])[3]",
		"status_info":             "//*[@class='status-info']",
		"download_link":           "(//a[contains(@href, 'unified_file_download')])[1]",
	} {
		l.Set(SectionLocators, key, value)
	}
	return l
}

// LoadLocators reads a YAML locator file and layers it over DefaultLocators.
//
//	cert:
//	  login_url: https://cert.example.com/user/login
//	  logout_url: https://cert.example.com/user/logout
//	credentials:
//	  export_reason: Export validation
//	locators:
//	  status_info: //*[@class='status-info']
func LoadLocators(path string) (*Locators, error) {
	l := DefaultLocators()
	if path == "" {
		return l, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("locator file not found, using built-in selectors", slog.String("path", path))
			return l, nil
		}
		return nil, fmt.Errorf("failed to read locator file: %w", err)
	}

	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse locator file %s: %w", path, err)
	}

	for section, values := range raw {
		for key, value := range values {
			l.Set(section, key, value)
		}
	}
	return l, nil
}

// Set stores a value
func (l *Locators) Set(section, key, value string) {
	section, key = normalizeKey(section), normalizeKey(key)
	if l.sections[section] == nil {
		l.sections[section] = make(map[string]string)
	}
	l.sections[section][key] = value
}

// Lookup returns the value and whether a non-empty one is configured
func (l *Locators) Lookup(section, key string) (string, bool) {
	values, ok := l.sections[normalizeKey(section)]
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(values[normalizeKey(key)])
	return value, value != ""
}

// Get returns the configured value or a CONFIG_MISSING error
func (l *Locators) Get(section, key string) (string, error) {
	if value, ok := l.Lookup(section, key); ok {
		return value, nil
	}
	return "", apperrors.NewConfigMissingError(section, key)
}

// GetOr returns the configured value or fallback
func (l *Locators) GetOr(section, key, fallback string) string {
	if value, ok := l.Lookup(section, key); ok {
		return value
	}
	return fallback
}

// Sections lists the configured section names in sorted order
func (l *Locators) Sections() []string {
	names := make([]string, 0, len(l.sections))
	for name := range l.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Credentials holds the remote application login. The values never reach a
// log line: String and LogValue redact them.
type Credentials struct {
	User     string `envconfig:"EXPORTCHECK_USER"`
	Password string `envconfig:"EXPORTCHECK_PASSWORD"`
}

// LoadCredentials reads EXPORTCHECK_USER and EXPORTCHECK_PASSWORD
func LoadCredentials() (Credentials, error) {
	var c Credentials
	// Full names with no prefix so envconfig never falls back to $USER.
	if err := envconfig.Process("", &c); err != nil {
		return Credentials{}, fmt.Errorf("failed to load credentials from env: %w", err)
	}
	if c.User == "" || c.Password == "" {
		return Credentials{}, apperrors.NewConfigMissingError("env", EnvPrefix+"_USER/"+EnvPrefix+"_PASSWORD")
	}
	return c, nil
}

// String implements fmt.Stringer
func (c Credentials) String() string {
	return "Credentials{REDACTED}"
}

// LogValue implements slog.LogValuer
func (c Credentials) LogValue() slog.Value {
	return slog.StringValue("REDACTED")
}
