package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/redis/go-redis/v9"

	"latex2pdf/internal/latex"
	"latex2pdf/internal/storage"
	u "latex2pdf/internal/utils"
)

// compilePasses is the fixed number of compiler invocations per request.
// LaTeX needs a second pass to resolve cross-references from the first
// pass's auxiliary output; both passes always run and only the second one
// is inspected.
const compilePasses = 2

const (
	stdoutHeadBytes = 1000
	stderrHeadBytes = 500
	logTailBytes    = 2000
)

// CompileRequest is the invocation payload.
type CompileRequest struct {
	LatexSource    string `json:"latex_source"`
	OutputFilename string `json:"output_filename,omitempty"`
}

// CompileService bundles configuration and dependencies for LaTeX
// compilation.
type CompileService struct {
	Config *u.Config
	Sink   storage.ArtifactSink
	Redis  *redis.Client
}

// NewCompileService creates a new CompileService instance. Sink and rdb may
// be nil; the artifact sink and the response cache are optional.
func NewCompileService(cfg u.Config, sink storage.ArtifactSink, rdb *redis.Client) *CompileService {
	return &CompileService{
		Config: &cfg,
		Sink:   sink,
		Redis:  rdb,
	}
}

// HandleLambda adapts Handle to the Lambda runtime signature.
func (svc *CompileService) HandleLambda(ctx context.Context, req CompileRequest) (events.APIGatewayProxyResponse, error) {
	return svc.Handle(ctx, req), nil
}

// Handle runs one synchronous compilation cycle: validate, stage, compile
// twice, interpret the second pass, and assemble a structured response. It
// never propagates a failure to the caller; every fault maps to a response.
func (svc *CompileService) Handle(ctx context.Context, req CompileRequest) (resp events.APIGatewayProxyResponse) {
	defer func() {
		if r := recover(); r != nil {
			u.Error("Recovered from panic during compilation", "panic", r)
			resp = textResponse(http.StatusInternalServerError, fmt.Sprintf("Unexpected error: %v", r))
		}
	}()

	u.Info("Compilation request received")

	if req.LatexSource == "" {
		return textResponse(http.StatusBadRequest, `Missing "latex_source" in the request payload`)
	}

	ws := latex.NewWorkspace(svc.Config.Compiler.WorkDir)
	if err := ws.WriteSource(req.LatexSource); err != nil {
		u.Error("Failed to stage LaTeX source", "path", ws.TexPath, "error", err.Error())
		return textResponse(http.StatusInternalServerError, "Unexpected error: "+err.Error())
	}

	runner := latex.Runner{Binary: svc.Config.Compiler.Binary, OutputDir: ws.Dir}

	var result *latex.Result
	for pass := 1; pass <= compilePasses; pass++ {
		r, err := runner.Run(ctx, ws.TexPath)
		if err != nil {
			// The process never started (missing binary, exec error).
			// A nonzero exit would be reported via the result instead.
			u.Error("Compiler failed to start", "pass", pass, "binary", runner.Binary, "error", err.Error())
			return textResponse(http.StatusInternalServerError, "Unexpected error: "+err.Error())
		}
		result = r
	}

	u.Info("Compiler stdout head", "output", head(result.Stdout, stdoutHeadBytes))
	u.Info("Compiler stderr head", "output", head(result.Stderr, stderrHeadBytes))

	if result.ExitCode != 0 {
		if tail, ok := latex.LogTail(ws.LogPath, logTailBytes); ok {
			u.Error("LaTeX compilation failed", "exit_code", result.ExitCode, "log_tail", tail)
		} else {
			u.Error("LaTeX compilation failed", "exit_code", result.ExitCode)
		}
		return textResponse(http.StatusInternalServerError, "LaTeX compilation error: "+result.Stderr)
	}

	pdf, err := ws.ReadPDF()
	if err != nil {
		u.Error("Compiled PDF missing or unreadable", "path", ws.PDFPath, "error", err.Error())
		return textResponse(http.StatusInternalServerError, "Unexpected error: "+err.Error())
	}

	if svc.Sink != nil {
		name := req.OutputFilename
		if name == "" {
			name = ws.Base + ".pdf"
		}
		location, err := svc.Sink.Store(ctx, pdf, name)
		if err != nil {
			u.Error("Artifact sink failed", "name", name, "error", err.Error())
			return textResponse(http.StatusInternalServerError, "Error storing artifact: "+err.Error())
		}
		u.Info("Artifact stored", "location", location)
	}

	u.Info("Successfully compiled to pdf", "base", ws.Base, "bytes", len(pdf))

	headers := map[string]string{"Content-Type": "application/pdf"}
	if req.OutputFilename != "" {
		headers["Content-Disposition"] = "attachment; filename=" + req.OutputFilename
	}
	return events.APIGatewayProxyResponse{
		StatusCode:      http.StatusOK,
		Headers:         headers,
		Body:            base64.StdEncoding.EncodeToString(pdf),
		IsBase64Encoded: true,
	}
}

func textResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       body,
	}
}

func head(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
