package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/sophialabs/declarecheck/internal/app"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/export"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg = app.DefaultConfig()
	logFile, prefix, verbose, reportFile, xlsxFile, failOnViolation = "", false, false, "", "", false
	queryTemplates, query = nil, services.Query{MinSupport: 1, MaxCardinality: 1}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func modelArgs(args ...string) []string {
	base := []string{"--model", "../../testdata/model", "--log-level", "error"}
	return append(base, args...)
}

func TestTemplatesCommand(t *testing.T) {
	out, err := execute(t, "templates")
	if err != nil {
		t.Fatalf("templates failed: %v", err)
	}
	if !strings.Contains(out, "Alternate Precedence") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCheckCommand_Summary(t *testing.T) {
	out, err := execute(t, append([]string{"check"}, modelArgs("--log", "../../testdata/logs/orders.xes")...)...)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	for _, want := range []string{"3 traces, 8 constraints", "1 malformed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCommand_VerboseAndReport(t *testing.T) {
	out, err := execute(t, append([]string{"check"}, modelArgs(
		"--log", "../../testdata/logs/orders.json",
		"--verbose", "--report", "default", "--engine", "expr")...)...)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	for _, want := range []string{"case-2", "VIOLATED", "3 traces, 8 constraints", "conformant"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCommand_XLSX(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.xlsx")
	if _, err := execute(t, append([]string{"check"}, modelArgs("--log", "../../testdata/logs/orders.xes", "--xlsx", target)...)...); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	f, err := excelize.OpenFile(target)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.VerdictsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) < 2 {
		t.Errorf("expected verdict rows, got %d", len(rows))
	}
}

func TestCheckCommand_FailOnViolation(t *testing.T) {
	_, err := execute(t, append([]string{"check"}, modelArgs("--log", "../../testdata/logs/orders.xes", "--fail-on-violation")...)...)
	if !errors.Is(err, errViolations) {
		t.Errorf("expected errViolations, got %v", err)
	}
}

func TestCheckCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing log flag", append([]string{"check"}, modelArgs()...)},
		{"missing log file", append([]string{"check"}, modelArgs("--log", "nope.xes")...)},
		{"missing model", []string{"check", "--model", "/nonexistent", "--log", "../../testdata/logs/orders.xes"}},
		{"unknown engine", append([]string{"check"}, modelArgs("--log", "../../testdata/logs/orders.xes", "--engine", "mustache")...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestQueryCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "first activity",
			args: []string{"--log", "../../testdata/logs/orders.json", "--template", "Init"},
			want: []string{"3 traces, 5 candidates, 1 matches", "Init[Create Order]", "100.0%"},
		},
		{
			name: "fixed pair below full support",
			args: []string{"--log", "../../testdata/logs/orders.xes", "-t", "response", "--activation", "Pay", "--target", "Ship", "--min-support", "0.6"},
			want: []string{"1 candidates, 1 matches", "Response[Pay, Ship]", "66.7%"},
		},
		{
			name: "vacuity",
			args: []string{"--log", "../../testdata/logs/orders.json", "-t", "response", "--activation", "Pay", "--target", "Ship", "--consider-vacuity"},
			want: []string{"1 matches", "Response[Pay, Ship]", "100.0%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"query"}, modelArgs(tt.args...)...)...)
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestQueryCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing log flag", append([]string{"query"}, modelArgs()...)},
		{"unknown template", append([]string{"query"}, modelArgs("--log", "../../testdata/logs/orders.json", "--template", "Eventually")...)},
		{"support out of range", append([]string{"query"}, modelArgs("--log", "../../testdata/logs/orders.json", "--min-support", "1.5")...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
