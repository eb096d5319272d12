package cosyncjwt

import (
	"testing"
	"time"
)

func TestLint_DefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	codes := cfg.Lint().Codes()

	if !containsCode(codes, "app_token_missing") {
		t.Error("expected app_token_missing for the default config")
	}
	if containsCode(codes, "rest_address_plain_http") {
		t.Error("default https address should not warn")
	}
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Errorf("default config should not fail AsError(LintHigh): %v", err)
	}
}

func TestLint_PlainHTTP(t *testing.T) {
	cfg := defaultConfig()
	cfg.RestAddress = "http://auth.example.com"
	ws := cfg.Lint()

	if !containsCode(ws.Codes(), "rest_address_plain_http") {
		t.Fatal("expected rest_address_plain_http warning")
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Fatal("expected AsError(LintHigh) to fail for plain http")
	}
}

func TestLint_PlainHTTPLoopbackAllowed(t *testing.T) {
	for _, addr := range []string{"http://localhost:8080", "http://127.0.0.1:9000", "http://[::1]:80"} {
		cfg := defaultConfig()
		cfg.RestAddress = addr
		if containsCode(cfg.Lint().Codes(), "rest_address_plain_http") {
			t.Errorf("%s: loopback should not warn", addr)
		}
	}
}

func TestLint_TimeoutDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.HTTP.Timeout = 0
	if !containsCode(cfg.Lint().Codes(), "timeout_disabled") {
		t.Error("expected timeout_disabled warning")
	}

	cfg.HTTP.Timeout = time.Second
	if containsCode(cfg.Lint().Codes(), "timeout_disabled") {
		t.Error("unexpected timeout_disabled warning")
	}
}

func TestLint_Audit(t *testing.T) {
	cfg := defaultConfig()
	if !containsCode(cfg.Lint().Codes(), "audit_disabled") {
		t.Error("expected audit_disabled warning when audit is off")
	}

	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	codes := cfg.Lint().Codes()
	if containsCode(codes, "audit_disabled") {
		t.Error("audit is enabled")
	}
	if !containsCode(codes, "audit_blocking") {
		t.Error("expected audit_blocking warning")
	}
}

func TestLint_BySeverity(t *testing.T) {
	cfg := defaultConfig()
	cfg.RestAddress = "http://auth.example.com"
	cfg.HTTP.Timeout = 0

	high := cfg.Lint().BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "rest_address_plain_http" {
		t.Fatalf("unexpected HIGH warnings: %+v", high)
	}
	if LintHigh.String() != "HIGH" {
		t.Fatalf("unexpected severity name %q", LintHigh.String())
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
