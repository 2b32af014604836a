package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/tablepick/internal/app"
)

const page = `<html><body><table id="t">
<thead><tr><th>Name</th><th>Qty</th></tr></thead>
<tbody><tr><td>bolt</td><td>4</td></tr><tr><td>nut</td><td>9</td></tr></tbody>
</table></body></html>`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file=" + filepath.Join(t.TempDir(), "none.env"), "--cache.dir="}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeSource(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return p
}

func TestExport_FlagsSelectAndFormat(t *testing.T) {
	src := writeSource(t, page)
	out, err := execute(t, "export", src, "--cols", "0", "--rows", "1", "--delimiter", "tab")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out != "\"Name\"\n\"nut\"\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExport_ConfigFileThenFlags(t *testing.T) {
	src := writeSource(t, page)
	cfgPath := filepath.Join(t.TempDir(), "tablepick.yaml")
	yaml := "export:\n  delimiter: semicolon\n  header: false\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := execute(t, "--config", cfgPath, "export", src, "--header")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(out, "Name;Qty\n") {
		t.Fatalf("flag should re-enable header, got %q", out)
	}
}

func TestExitCode_NoTables(t *testing.T) {
	src := writeSource(t, `<table><tr><td colspan="3">only</td></tr></table>`)
	_, err := execute(t, "list", src)
	if err == nil {
		t.Fatalf("expected error")
	}
	if code := exitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if code := exitCode(fmt.Errorf("wrapped: %w", app.ErrNoTables)); code != 2 {
		t.Fatalf("wrapped exit code = %d, want 2", code)
	}
}

func TestExitCode_InvalidConfig(t *testing.T) {
	src := writeSource(t, page)
	_, err := execute(t, "export", src, "--format", "docx")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if code := exitCode(err); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestAnnotate_ToFile(t *testing.T) {
	src := writeSource(t, page)
	dst := filepath.Join(t.TempDir(), "annotated.html")
	if _, err := execute(t, "annotate", src, "-o", dst); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "tpc-ext-row-select-th") {
		t.Fatalf("controls missing from annotated page")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "tablepick ") {
		t.Fatalf("unexpected version output %q", out)
	}
}
