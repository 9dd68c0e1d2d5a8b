package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "exportcheck/internal/errors"
)

// Locator section and keys read by Workflow
const (
	SectionLocators    = "locators"
	SectionCredentials = "credentials"

	KeyLoginURL     = "login_url"
	KeyLogoutURL    = "logout_url"
	KeyExportReason = "export_reason"

	KeyPreloader       = "preloader"
	KeyUsername        = "username"
	KeyPassword        = "password"
	KeySubmit          = "submit"
	KeyReasonTextbox   = "reason_textbox"
	KeyCustomerPicker  = "customer_picker"
	KeyCustomerOption  = "customer_option"
	KeySidenavToggle   = "sidenav_toggle"
	KeyExportAllCSV    = "export_all_csv"
	KeyConfirmYes      = "confirm_yes"
	KeyDashboardLink   = "dashboard_link"
	KeyDashboardCell   = "dashboard_customer_cell"
	KeyDashboardExport = "dashboard_export_type"
	KeyStatusInfo      = "status_info"
	KeyDownloadLink    = "download_link"

	customerPlaceholder = "{customer}"
)

// LogTabKey is the locator key of the kind's log tab, e.g. sticket_log_tab
func LogTabKey(kind ExportKind) string { return string(kind) + "_log_tab" }

// BulkFilterKey is the locator key of the kind's bulk action menu
func BulkFilterKey(kind ExportKind) string { return string(kind) + "_bulk_filter" }

const (
	loginSettle    = 5 * time.Second
	preloaderDelay = 800 * time.Millisecond
)

// FlowTimeouts bounds the waits of a Workflow
type FlowTimeouts struct {
	Step      time.Duration
	Login     time.Duration
	Preloader time.Duration
	Status    time.Duration
}

// DefaultFlowTimeouts returns the timeouts used against the remote application
func DefaultFlowTimeouts() FlowTimeouts {
	return FlowTimeouts{
		Step:      15 * time.Second,
		Login:     120 * time.Second,
		Preloader: 300 * time.Second,
		Status:    10 * time.Second,
	}
}

// DashboardInfo is what the first export dashboard row shows
type DashboardInfo struct {
	Customer        string `json:"customer"`
	ExportType      string `json:"export_type"`
	CustomerMatches bool   `json:"customer_matches"`
}

// Workflow runs the page sequences of one validation run on a Session
type Workflow struct {
	session  Session
	cfg      ConfigProvider
	timeouts FlowTimeouts
	sleeper  Sleeper
	log      *LogCollector
}

// NewWorkflow creates a Workflow. Nil sleeper and log get defaults.
func NewWorkflow(session Session, cfg ConfigProvider, timeouts FlowTimeouts, sleeper Sleeper, log *LogCollector) *Workflow {
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	if log == nil {
		log = NewLogCollector(nil)
	}
	return &Workflow{session: session, cfg: cfg, timeouts: timeouts, sleeper: sleeper, log: log}
}

func (w *Workflow) locator(key string) (string, error) {
	return w.cfg.Get(SectionLocators, key)
}

func automation(step string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.NewAutomationError(step, err)
}

func (w *Workflow) click(ctx context.Context, key string) error {
	sel, err := w.locator(key)
	if err != nil {
		return err
	}
	return automation("click "+key, w.session.Click(ctx, sel))
}

func (w *Workflow) waitAndClick(ctx context.Context, key string, timeout time.Duration) error {
	sel, err := w.locator(key)
	if err != nil {
		return err
	}
	if err := w.session.WaitVisible(ctx, sel, timeout); err != nil {
		return automation("wait for "+key, err)
	}
	return automation("click "+key, w.session.Click(ctx, sel))
}

func (w *Workflow) sendText(ctx context.Context, key, text string) error {
	sel, err := w.locator(key)
	if err != nil {
		return err
	}
	return automation("fill "+key, w.session.SendText(ctx, sel, text))
}

// waitPreloader waits for the page's loading overlay to disappear. A
// persisting overlay is noted and tolerated.
func (w *Workflow) waitPreloader(ctx context.Context) error {
	if err := w.sleeper.Sleep(ctx, preloaderDelay); err != nil {
		return err
	}
	sel, ok := w.cfg.Lookup(SectionLocators, KeyPreloader)
	if !ok {
		return nil
	}
	if err := w.session.WaitGone(ctx, sel, w.timeouts.Preloader); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.log.Notice("Preloader wait timed out (element may persist): %v", err)
	}
	return nil
}

// Login signs in to env and selects customer
func (w *Workflow) Login(ctx context.Context, env Environment, customer, user, password string) error {
	loginURL, err := w.cfg.Get(env.Section(), KeyLoginURL)
	if err != nil {
		return err
	}
	if logoutURL, ok := w.cfg.Lookup(env.Section(), KeyLogoutURL); ok {
		if err := w.session.Navigate(ctx, logoutURL); err != nil {
			return automation("open logout page", err)
		}
	}
	if err := w.session.Navigate(ctx, loginURL); err != nil {
		return automation("open login page", err)
	}

	if err := w.sendText(ctx, KeyUsername, user); err != nil {
		return err
	}
	if err := w.sendText(ctx, KeyPassword, password); err != nil {
		return err
	}
	if err := w.click(ctx, KeySubmit); err != nil {
		return err
	}

	reason, err := w.locator(KeyReasonTextbox)
	if err != nil {
		return err
	}
	if err := w.session.WaitVisible(ctx, reason, w.timeouts.Login); err != nil {
		return automation("wait for customer selection", err)
	}
	if err := w.click(ctx, KeyCustomerPicker); err != nil {
		return err
	}
	option, err := w.locator(KeyCustomerOption)
	if err != nil {
		return err
	}
	option = strings.ReplaceAll(option, customerPlaceholder, XPathLiteral(customer))
	if err := w.session.Click(ctx, option); err != nil {
		return automation("select customer "+customer, err)
	}

	if err := w.session.WaitVisible(ctx, reason, w.timeouts.Login); err != nil {
		return automation("wait for export reason", err)
	}
	if err := w.session.SendText(ctx, reason, w.cfg.GetOr(SectionCredentials, KeyExportReason, "")); err != nil {
		return automation("fill export reason", err)
	}
	if err := w.click(ctx, KeySubmit); err != nil {
		return err
	}
	if err := w.sleeper.Sleep(ctx, loginSettle); err != nil {
		return err
	}
	if err := w.waitPreloader(ctx); err != nil {
		return err
	}

	w.log.Success("Logged in successfully (%s) as customer '%s'.", env, customer)
	return nil
}

// openSideNav opens the side navigation unless tabKey is already visible
func (w *Workflow) openSideNav(ctx context.Context, tabKey string) error {
	if tabKey != "" {
		if tab, ok := w.cfg.Lookup(SectionLocators, tabKey); ok {
			if visible, _ := w.session.Visible(ctx, tab); visible {
				w.log.Info("%s is present, skipping sidenav click.", tabKey)
				return nil
			}
		}
	}

	toggle, ok := w.cfg.Lookup(SectionLocators, KeySidenavToggle)
	if !ok {
		return nil
	}
	visible, err := w.session.Visible(ctx, toggle)
	if err != nil || !visible {
		w.log.Info("Side navigation toggle not present; assuming side nav already open.")
		return nil
	}
	if err := w.session.Click(ctx, toggle); err != nil {
		w.log.Notice("Side navigation toggle present but not clickable: %v", err)
		return nil
	}
	w.log.Info("Opened side navigation.")
	return w.waitPreloader(ctx)
}

// TriggerExport starts the export of kind from its log page and returns
// the log page address for the later second-source capture.
func (w *Workflow) TriggerExport(ctx context.Context, kind ExportKind) (string, error) {
	tabKey, filterKey := LogTabKey(kind), BulkFilterKey(kind)
	if _, err := w.locator(tabKey); err != nil {
		return "", err
	}
	if _, err := w.locator(filterKey); err != nil {
		return "", err
	}

	if err := w.openSideNav(ctx, tabKey); err != nil {
		return "", err
	}
	if err := w.waitPreloader(ctx); err != nil {
		return "", err
	}
	if err := w.waitAndClick(ctx, tabKey, w.timeouts.Step); err != nil {
		w.log.Failure("Could not click %s: %v", tabKey, err)
		return "", err
	}
	if err := w.waitPreloader(ctx); err != nil {
		return "", err
	}

	logPage, err := w.session.Location(ctx)
	if err != nil {
		w.log.Notice("Could not read the log page address: %v", err)
		logPage = ""
	}

	for _, key := range []string{filterKey, KeyExportAllCSV, KeyConfirmYes} {
		if err := w.click(ctx, key); err != nil {
			w.log.Failure("Could not click %s: %v", key, err)
			return "", err
		}
	}
	w.log.Info("%s export triggered.", kind)
	return logPage, nil
}

// OpenDashboard moves to the export dashboard in the current tab
func (w *Workflow) OpenDashboard(ctx context.Context) error {
	if err := w.openSideNav(ctx, ""); err != nil {
		return err
	}
	link, err := w.locator(KeyDashboardLink)
	if err != nil {
		return err
	}

	href, ok, err := w.session.Attribute(ctx, link, "href")
	if err == nil && ok && href != "" && !strings.HasPrefix(strings.ToLower(href), "javascript:") {
		if err := w.session.Navigate(ctx, href); err != nil {
			return automation("open export dashboard", err)
		}
	} else if err := w.session.Click(ctx, link); err != nil {
		w.log.Notice("Normal click for the dashboard link failed: %v; trying JS click", err)
		if err := w.session.JSClick(ctx, link); err != nil {
			w.log.Failure("Could not click the dashboard link: %v", err)
			return automation("open export dashboard", err)
		}
	}
	return w.waitPreloader(ctx)
}

// InspectDashboard checks the customer of the newest dashboard row and
// records the export type it shows. A customer mismatch is logged, not returned.
func (w *Workflow) InspectDashboard(ctx context.Context, customer string) (*DashboardInfo, error) {
	info := &DashboardInfo{}

	cell, err := w.locator(KeyDashboardCell)
	if err != nil {
		return nil, err
	}
	if err := w.session.WaitVisible(ctx, cell, w.timeouts.Step); err != nil {
		return nil, automation("wait for dashboard row", err)
	}
	if info.Customer, err = w.session.Text(ctx, cell); err != nil {
		return nil, automation("read dashboard customer", err)
	}
	info.Customer = strings.TrimSpace(info.Customer)

	if strings.EqualFold(info.Customer, strings.TrimSpace(customer)) {
		info.CustomerMatches = true
		w.log.Success("Match found! Customer '%s' matches selected '%s'.", info.Customer, customer)
	} else {
		w.log.Failure("Mismatch! Table shows '%s' but selected '%s'.", info.Customer, customer)
	}

	exportType, err := w.locator(KeyDashboardExport)
	if err != nil {
		return nil, err
	}
	if err := w.session.WaitVisible(ctx, exportType, w.timeouts.Step); err != nil {
		return nil, automation("wait for dashboard export type", err)
	}
	if info.ExportType, err = w.session.Text(ctx, exportType); err != nil {
		return nil, automation("read dashboard export type", err)
	}
	info.ExportType = strings.TrimSpace(info.ExportType)
	w.log.Info("Export type is: %s", info.ExportType)
	return info, nil
}

// StatusSource returns the dashboard status element as a StatusSource
func (w *Workflow) StatusSource() StatusSource {
	return dashboardStatus{w: w}
}

type dashboardStatus struct {
	w *Workflow
}

func (s dashboardStatus) ReadStatus(ctx context.Context) (string, error) {
	sel, err := s.w.locator(KeyStatusInfo)
	if err != nil {
		return "", err
	}
	if err := s.w.session.WaitVisible(ctx, sel, s.w.timeouts.Status); err != nil {
		return "", err
	}
	return s.w.session.Text(ctx, sel)
}

func (s dashboardStatus) Refresh(ctx context.Context) error {
	if err := s.w.session.Reload(ctx); err != nil {
		return err
	}
	return s.w.waitPreloader(ctx)
}

// ClickDownload clicks the newest download link, falling back to a script
// click. A link that cannot be clicked is logged; the artifact wait decides
// whether the run fails.
func (w *Workflow) ClickDownload(ctx context.Context) error {
	link, err := w.locator(KeyDownloadLink)
	if err != nil {
		return err
	}
	err = w.session.Click(ctx, link)
	if err == nil {
		w.log.Info("Clicked download link (normal click).")
		return nil
	}
	w.log.Notice("Normal click on download link failed: %v - trying JS click", err)
	if err := w.session.JSClick(ctx, link); err != nil {
		w.log.Failure("Could not click download link (all fallbacks). Continuing to wait for the file.")
		return nil
	}
	w.log.Info("Clicked download link via JS.")
	return nil
}

// CaptureSecondSource returns to the log page and reads up to maxRows rows
// of the table whose headers best cover columns.
func (w *Workflow) CaptureSecondSource(ctx context.Context, logPage string, columns []string, maxRows int) (*SecondSourceSnapshot, error) {
	if logPage != "" {
		if err := w.session.Navigate(ctx, logPage); err != nil {
			return nil, automation("return to log page", err)
		}
	} else if err := w.session.Reload(ctx); err != nil {
		return nil, automation("reload log page", err)
	}
	if err := w.waitPreloader(ctx); err != nil {
		return nil, err
	}

	tables, err := w.session.Tables(ctx)
	if err != nil {
		return nil, automation("read log page tables", err)
	}
	return SelectSecondSource(tables, columns, maxRows, w.log)
}

// SelectSecondSource picks the first table whose headers overlap at least
// half of columns and aligns up to maxRows of its rows with columns.
func SelectSecondSource(tables []HTMLTable, columns []string, maxRows int, log *LogCollector) (*SecondSourceSnapshot, error) {
	if log == nil {
		log = NewLogCollector(nil)
	}
	need := max(1, len(columns)/2)

	want := make([]string, len(columns))
	for i, c := range columns {
		want[i] = normalizeHeader(c)
	}

	for _, tbl := range tables {
		if len(tbl.Headers) == 0 {
			continue
		}
		have := make([]string, len(tbl.Headers))
		for i, h := range tbl.Headers {
			have[i] = normalizeHeader(h)
		}

		mapping := make([]int, len(columns))
		overlap := 0
		for j := range want {
			mapping[j] = matchHeader(have, []string{want[j]})
			if mapping[j] >= 0 {
				overlap++
			}
		}
		if overlap < need {
			continue
		}

		log.Info("Found candidate log table for comparison.")
		snap := &SecondSourceSnapshot{Mapped: make([]bool, len(columns)), Rows: [][]string{}}
		for j, idx := range mapping {
			snap.Mapped[j] = idx >= 0
			if idx < 0 {
				log.Notice("Header '%s' not found in the log page table; not compared.", columns[j])
			}
		}
		for _, tr := range tbl.Rows {
			if len(snap.Rows) >= maxRows {
				break
			}
			row := make([]string, len(columns))
			for j, idx := range mapping {
				if idx >= 0 && idx < len(tr) {
					row[j] = strings.TrimSpace(tr[idx])
				}
			}
			snap.Rows = append(snap.Rows, row)
		}
		log.Info("Captured %d rows from the log page for comparison.", len(snap.Rows))
		return snap, nil
	}
	return nil, fmt.Errorf("no table on the log page covers %d of the %d selected columns", need, len(columns))
}

// Logout signs out of env. Failures are noted and not returned.
func (w *Workflow) Logout(ctx context.Context, env Environment) {
	url, ok := w.cfg.Lookup(env.Section(), KeyLogoutURL)
	if !ok {
		return
	}
	if err := w.session.Navigate(ctx, url); err != nil {
		w.log.Notice("Logout failed: %v", err)
		return
	}
	w.log.Info("Logged out.")
}

// XPathLiteral quotes s as an XPath string literal
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
