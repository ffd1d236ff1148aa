package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/semmy-space/vlt/internal/audit"
	"github.com/semmy-space/vlt/internal/output"
)

// parseDate parses a date string in either YYYY-MM-DD or RFC3339 format
func parseDate(s string, endOfDay bool) (time.Time, error) {
	// Try RFC3339 first
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	// Try date-only format (YYYY-MM-DD)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		if endOfDay {
			return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC), nil
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("invalid date format: use YYYY-MM-DD or RFC3339")
}

// AuditCmd shows the audit log, most recent first
type AuditCmd struct {
	Limit    int    `help:"Maximum entries to show (0 for all)" default:"50" short:"n"`
	Vault    string `help:"Only entries for this vault" predictor:"vault"`
	Event    string `help:"Only entries of this event (e.g. CREDENTIAL_GET)" predictor:"event"`
	Since    string `help:"Only entries at or after this date (YYYY-MM-DD or RFC3339)"`
	Until    string `help:"Only entries at or before this date (YYYY-MM-DD or RFC3339)"`
	Failures bool   `help:"Only failed operations"`
}

// auditFilter selects audit entries
type auditFilter struct {
	vault    string
	event    audit.Event
	since    time.Time
	until    time.Time
	failures bool
}

func (f auditFilter) match(e audit.Entry) bool {
	if f.vault != "" && e.VaultName != f.vault {
		return false
	}
	if f.event != "" && e.Event != f.event {
		return false
	}
	if !f.since.IsZero() && e.Timestamp.Before(f.since) {
		return false
	}
	if !f.until.IsZero() && e.Timestamp.After(f.until) {
		return false
	}
	if f.failures && e.Success {
		return false
	}
	return true
}

// filterEntries keeps matching entries in order, stopping at limit (0 means
// no limit).
func filterEntries(entries []audit.Entry, f auditFilter, limit int) []audit.Entry {
	out := []audit.Entry{}
	for _, e := range entries {
		if !f.match(e) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Run executes the audit command
func (cmd *AuditCmd) Run(vp *VaultProvider, fp *FormatterProvider) error {
	if !vp.Settings().AuditEnabled {
		return output.NewCLIError(output.ExitConfigError, "Audit logging is off").
			WithHint("Enable it with: vlt config set audit on")
	}

	filter := auditFilter{
		vault:    cmd.Vault,
		event:    audit.Event(strings.ToUpper(cmd.Event)),
		failures: cmd.Failures,
	}

	if cmd.Since != "" {
		since, err := parseDate(cmd.Since, false)
		if err != nil {
			return &output.CLIError{
				Message:  fmt.Sprintf("Invalid --since date: %v", err),
				ExitCode: output.ExitUsage,
			}
		}
		filter.since = since
	}
	if cmd.Until != "" {
		until, err := parseDate(cmd.Until, true)
		if err != nil {
			return &output.CLIError{
				Message:  fmt.Sprintf("Invalid --until date: %v", err),
				ExitCode: output.ExitUsage,
			}
		}
		filter.until = until
	}

	entries := filterEntries(vp.Audit().ReadLog(0), filter, cmd.Limit)

	if fp.Mode == "json" {
		return fp.Formatter.PrintList(entries, nil)
	}

	// Transform entries for display
	type displayEntry struct {
		Time       string
		Event      string
		Vault      string
		Credential string
		Result     string
		Error      string
	}

	display := make([]displayEntry, len(entries))
	for i, e := range entries {
		display[i] = displayEntry{
			Time:       e.Timestamp.Local().Format(time.DateTime),
			Event:      string(e.Event),
			Vault:      e.VaultName,
			Credential: e.CredentialName,
			Result:     formatResult(e.Success),
			Error:      e.ErrorCode,
		}
	}

	columns := []output.Column{
		{Name: "Time", Key: "Time"},
		{Name: "Event", Key: "Event"},
		{Name: "Vault", Key: "Vault"},
		{Name: "Credential", Key: "Credential", Width: 40},
		{Name: "Result", Key: "Result"},
		{Name: "Error", Key: "Error"},
	}

	return fp.Formatter.PrintList(display, columns)
}

// formatResult renders an audit success flag
func formatResult(success bool) string {
	if success {
		return "ok"
	}
	return "FAILED"
}
