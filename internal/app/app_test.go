package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"latex2pdf/internal/handlers"
	u "latex2pdf/internal/utils"
)

const fakeCompilerScript = `#!/bin/sh
outdir=""
tex=""
for a in "$@"; do
  case "$a" in
    -output-directory=*) outdir="${a#-output-directory=}" ;;
    *.tex) tex="$a" ;;
  esac
done
base=$(basename "$tex" .tex)
echo run >> "$outdir/invocations.txt"
printf '%%PDF-1.4 fake document body' > "$outdir/$base.pdf"
exit 0
`

func writeFakeCompiler(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pdflatex")
	if err := os.WriteFile(path, []byte(fakeCompilerScript), 0o755); err != nil {
		t.Fatalf("write fake compiler: %v", err)
	}
	return path
}

func minimalConfig(binary, workDir string) u.Config {
	var cfg u.Config
	cfg.Compiler.Binary = binary
	cfg.Compiler.WorkDir = workDir
	return cfg
}

func compileRequest(t *testing.T, body map[string]string) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/compile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func invocationCount(t *testing.T, workDir string) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(workDir, "invocations.txt"))
	if err != nil {
		return 0
	}
	return strings.Count(string(data), "run")
}

func TestSetupApp_JSON404(t *testing.T) {
	cfg := minimalConfig("pdflatex", t.TempDir())
	app := SetupApp(cfg, handlers.NewCompileService(cfg, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("404 request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("expected JSON error response, got content type %q", got)
	}
}

func TestSetupApp_Healthcheck(t *testing.T) {
	cfg := minimalConfig("pdflatex", t.TempDir())
	app := SetupApp(cfg, handlers.NewCompileService(cfg, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("healthcheck request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected /livez 200, got %d", resp.StatusCode)
	}
}

func TestCompileEndpoint_Success(t *testing.T) {
	workDir := t.TempDir()
	cfg := minimalConfig(writeFakeCompiler(t), workDir)
	app := SetupApp(cfg, handlers.NewCompileService(cfg, nil, nil))

	req := compileRequest(t, map[string]string{
		"latex_source":    "\\documentclass{article}\\begin{document}Hi\\end{document}",
		"output_filename": "hello.pdf",
	})
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("compile request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "hello.pdf") {
		t.Fatalf("expected Content-Disposition with filename, got %q", got)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "%PDF-") {
		t.Fatalf("expected PDF signature, got %q", string(body[:min(len(body), 16)]))
	}
}

func TestCompileEndpoint_MissingSource(t *testing.T) {
	cfg := minimalConfig("pdflatex", t.TempDir())
	app := SetupApp(cfg, handlers.NewCompileService(cfg, nil, nil))

	resp, err := app.Test(compileRequest(t, map[string]string{}), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "latex_source") {
		t.Fatalf("expected body to mention the missing field, got %q", string(body))
	}
}

func TestCompileEndpoint_CacheHitSkipsCompiler(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	workDir := t.TempDir()
	cfg := minimalConfig(writeFakeCompiler(t), workDir)
	cfg.Cache.Enabled = true
	cfg.Cache.TTLSecs = 60

	app := SetupApp(cfg, handlers.NewCompileService(cfg, nil, rdb))

	body := map[string]string{"latex_source": "\\documentclass{article}\\begin{document}Hi\\end{document}"}

	for i := 0; i < 2; i++ {
		resp, err := app.Test(compileRequest(t, body), -1)
		if err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.StatusCode)
		}
		payload, _ := io.ReadAll(resp.Body)
		if !strings.HasPrefix(string(payload), "%PDF-") {
			t.Fatalf("request %d: expected PDF signature", i+1)
		}
	}

	// One compilation, two passes; the second request came from the cache.
	if got := invocationCount(t, workDir); got != 2 {
		t.Fatalf("expected compiler invoked twice in total, got %d", got)
	}
}

func TestCompileEndpoint_CacheDisabledCompilesEveryTime(t *testing.T) {
	workDir := t.TempDir()
	cfg := minimalConfig(writeFakeCompiler(t), workDir)

	app := SetupApp(cfg, handlers.NewCompileService(cfg, nil, nil))

	body := map[string]string{"latex_source": "\\documentclass{article}\\begin{document}Hi\\end{document}"}
	for i := 0; i < 2; i++ {
		resp, err := app.Test(compileRequest(t, body), -1)
		if err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	if got := invocationCount(t, workDir); got != 4 {
		t.Fatalf("expected four compiler invocations, got %d", got)
	}
}
