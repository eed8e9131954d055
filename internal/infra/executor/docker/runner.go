package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultImage = "aquasec/trivy:latest"

// ScanRequest asks for a trivy image scan.
type ScanRequest struct {
	Image      string
	OutDir     string   // host directory for the report, default ./temp
	Severities []string // empty means all
}

type ScanResult struct {
	ReportPath string
	ExitCode   int
	DurationMS int64
}

// Runner runs trivy inside docker and writes its JSON report to disk, where
// the pipeline picks it up as the scan log.
type Runner struct {
	TrivyImage string
	Logger     *zap.Logger

	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{TrivyImage: defaultImage, Logger: logger, command: exec.CommandContext}
}

func (r *Runner) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	if strings.TrimSpace(req.Image) == "" {
		return ScanResult{}, errors.New("image is required")
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = filepath.Join(".", "temp")
	}
	outDir, err := filepath.Abs(outDir)
	if err != nil {
		return ScanResult{}, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return ScanResult{}, fmt.Errorf("create output dir: %w", err)
	}
	file := fmt.Sprintf("trivy-%s.json", uuid.NewString())

	start := time.Now()
	cmd := r.command(ctx, "docker", r.args(req, outDir, file)...)
	out, err := cmd.CombinedOutput()
	duration := time.Since(start).Milliseconds()

	exitCode := 0
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			return ScanResult{}, fmt.Errorf("run trivy: %w, output=%s", err, string(out))
		}
		// trivy exits non-zero when --exit-code is set and findings exist;
		// the report is still written.
		exitCode = ee.ExitCode()
	}

	path := filepath.Join(outDir, file)
	if _, statErr := os.Stat(path); statErr != nil {
		return ScanResult{}, fmt.Errorf("trivy produced no report (exit %d): %s", exitCode, strings.TrimSpace(string(out)))
	}
	r.Logger.Info("trivy scan finished",
		zap.String("image", req.Image),
		zap.Int("exit_code", exitCode),
		zap.Int64("duration_ms", duration),
	)
	return ScanResult{ReportPath: path, ExitCode: exitCode, DurationMS: duration}, nil
}

func (r *Runner) args(req ScanRequest, outDir, file string) []string {
	image := r.TrivyImage
	if image == "" {
		image = defaultImage
	}
	args := []string{"run", "--rm",
		"-v", "/var/run/docker.sock:/var/run/docker.sock",
		"-v", fmt.Sprintf("%s:/out", outDir),
		image,
		"image", "--scanners", "vuln",
		"--format", "json",
		"-o", "/out/" + file,
	}
	if len(req.Severities) > 0 {
		args = append(args, "--severity", strings.ToUpper(strings.Join(req.Severities, ",")))
	}
	return append(args, req.Image)
}
