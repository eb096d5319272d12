package cosyncjwt

import (
	"fmt"
	"net/url"
	"strings"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one advisory finding. Lint never blocks Build.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings returned by Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, len(r))
	for i, w := range r {
		codes[i] = w.Code
	}
	return codes
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing every warning at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, len(hits))
	for i, w := range hits {
		parts[i] = w.Code
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, ", "))
}

// Lint reports settings that are valid but likely mistakes. Run Validate first;
// Lint assumes a valid Config.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.AppToken == "" {
		add("app_token_missing", LintInfo, "AppToken is empty; app-token operations fail until Configure is called")
	}

	if u, err := url.Parse(c.RestAddress); err == nil && u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		add("rest_address_plain_http", LintHigh, "RestAddress uses plain http; passwords and tokens travel unencrypted")
	}

	if c.HTTP.Timeout == 0 {
		add("timeout_disabled", LintWarn, "HTTP Timeout is 0; requests are bounded only by the caller's context")
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are disabled")
	} else if !c.Audit.DropIfFull {
		add("audit_blocking", LintWarn, "Audit DropIfFull is false; a slow sink blocks Client operations")
	}

	return ws
}

func isLoopbackHost(host string) bool {
	return host == "localhost" || host == "::1" || strings.HasPrefix(host, "127.")
}
