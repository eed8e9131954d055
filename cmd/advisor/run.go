package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appadvisory "github.com/bryanwahyu/cve-advisor/internal/application/advisory"
	"github.com/bryanwahyu/cve-advisor/internal/application/contexts"
	"github.com/bryanwahyu/cve-advisor/internal/bootstrap"
	"github.com/bryanwahyu/cve-advisor/internal/infra/executor/docker"
	"github.com/bryanwahyu/cve-advisor/internal/middleware"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the report pipeline once",
		Long: "Reads a trivy JSON scan log (or scans an image with trivy in docker), " +
			"ranks the findings, asks the oracle for an advisory and posts it to the webhook.",
		Example: `  advisor run --scan-log trivy_output.json
  advisor run --image python:3.12-slim --severity HIGH,CRITICAL
  advisor run --dry-run`,
		Args: cobra.NoArgs,
		RunE: runAction,
	}
	flags := cmd.Flags()
	flags.String("scan-log", "", "trivy JSON output to report on [$SCAN_LOG_PATH]")
	flags.String("image", "", "scan this image with trivy (docker) instead of reading --scan-log")
	flags.String("severity", "", "comma-separated severities passed to trivy with --image")
	flags.String("out-dir", "temp", "where --image writes the trivy report")
	flags.Bool("dry-run", false, "print the report instead of posting it")
	return cmd
}

// stdoutDelivery prints the report; used by --dry-run.
type stdoutDelivery struct{ w io.Writer }

func (d stdoutDelivery) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintln(d.w, text)
	return err
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx := cmd.Context()

	flags := cmd.Flags()
	scanLog, _ := flags.GetString("scan-log")
	image, _ := flags.GetString("image")
	severity, _ := flags.GetString("severity")
	outDir, _ := flags.GetString("out-dir")
	dryRun, _ := flags.GetBool("dry-run")

	if err := middleware.ValidatePath(scanLog); err != nil {
		return err
	}

	deps := bootstrap.PipelineDeps{}
	if cfg.Pipeline.ContextURL == "" {
		store, err := bootstrap.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Contexts = contexts.NewService(ctx, store.Persister, logger)
		deps.History = store.History
	}
	archive, err := bootstrap.Archive(ctx, cfg, logger.Named("archive"))
	if err != nil {
		return fmt.Errorf("minio init error: %w", err)
	}
	if archive != nil {
		deps.Archive = archive
	}

	// missing configuration is fatal for a run
	svc, err := bootstrap.Pipeline(ctx, cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if dryRun {
		svc.Delivery = stdoutDelivery{w: cmd.OutOrStdout()}
	}

	if image != "" {
		if err := middleware.ValidateImageName(image); err != nil {
			return err
		}
		var sev []string
		if severity != "" {
			sev = strings.Split(severity, ",")
		}
		res, err := docker.NewRunner(logger.Named("trivy")).Scan(ctx, docker.ScanRequest{Image: image, OutDir: outDir, Severities: sev})
		if err != nil {
			return fmt.Errorf("trivy scan: %w", err)
		}
		scanLog = res.ReportPath
	}

	res, err := svc.Run(ctx, appadvisory.RunCommand{ScanLogPath: scanLog, Trigger: "cli"})
	if err != nil {
		return err
	}
	// the raw trivy output moves to the archive once the report is out
	if image != "" && archive != nil {
		key := "scans/" + filepath.Base(scanLog)
		if _, err := archive.UploadAndCleanup(ctx, scanLog, key); err != nil {
			logger.Warn("scan archive failed", zap.String("path", scanLog), zap.Error(err))
		}
	}
	printSummary(cmd.ErrOrStderr(), res)
	return nil
}

func printSummary(w io.Writer, res appadvisory.RunResult) {
	fmt.Fprintf(w, "run %s: %d finding(s), mode=%s, delivered=%t", res.ID, len(res.Ranked), res.Context.Mode, res.Delivered)
	if len(res.Degraded) > 0 {
		fmt.Fprintf(w, ", degraded=%s", strings.Join(res.Degraded, ","))
	}
	fmt.Fprintln(w)
}

