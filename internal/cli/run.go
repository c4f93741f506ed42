package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/codecheck/internal/analysis"
	"github.com/dshills/codecheck/internal/batch"
	"github.com/dshills/codecheck/internal/cache"
	"github.com/dshills/codecheck/internal/config"
	"github.com/dshills/codecheck/internal/fileset"
	"github.com/dshills/codecheck/internal/gitfiles"
	"github.com/dshills/codecheck/internal/logging"
	"github.com/dshills/codecheck/internal/output"
	"github.com/dshills/codecheck/internal/redact"
	"github.com/dshills/codecheck/internal/service"
)

// Shared run flags
var (
	flagFormat      string
	flagOut         string
	flagArchive     string
	flagChanged     bool
	flagStaged      bool
	flagTracked     bool
	flagInclude     string
	flagExclude     string
	flagFailOnError bool
	flagModel       string
	flagServiceURL  string
	flagNoCache     bool
	flagMask        bool
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, yaml)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagArchive, "archive", "", "Also write successful results to this zip file")
	cmd.Flags().BoolVar(&flagChanged, "changed", false, "Process files changed in the working tree")
	cmd.Flags().BoolVar(&flagStaged, "staged", false, "Process staged files")
	cmd.Flags().BoolVar(&flagTracked, "tracked", false, "Process all tracked files")
	cmd.Flags().StringVar(&flagInclude, "paths", "", "Include file path globs for git discovery (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().BoolVar(&flagFailOnError, "fail-on-error", false, "Exit 1 when any file fails")
	cmd.Flags().StringVar(&flagServiceURL, "service-url", "", "Analysis service base URL")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Do not read or write the persistent cache")
	cmd.Flags().BoolVar(&flagMask, "mask", false, "Mask sensitive values in the output")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagServiceURL != "" {
		m["service.url"] = flagServiceURL
	}
	if flagModel != "" {
		m["run.model"] = flagModel
	}
	if flagEngine != "" {
		m["run.engine"] = flagEngine
	}
	if flagIndent != "" {
		m["run.indent"] = flagIndent
	}
	if flagBrace != "" {
		m["run.brace"] = flagBrace
	}
	if flagComma != "" {
		m["run.comma"] = flagComma
	}
	if flagSummaryOnly {
		m["run.summary_only"] = "true"
	}
	if flagGPTFeedback {
		m["run.gpt_feedback"] = "true"
	}
	if flagNoCache {
		m["cache.persist"] = "false"
	}
	if flagMask {
		m["privacy.mask_output"] = "true"
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func buildGitOpts(cfg config.Config) gitfiles.Options {
	opts := gitfiles.Options{
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	}
	if flagInclude != "" {
		opts.Include = splitComma(flagInclude)
	}
	if flagExclude != "" {
		opts.Exclude = append(opts.Exclude, splitComma(flagExclude)...)
	}
	return opts
}

// gitSource returns the selected discovery source, or "" when files are
// given as arguments.
func gitSource() (gitfiles.Source, error) {
	var selected []gitfiles.Source
	if flagChanged {
		selected = append(selected, gitfiles.SourceChanged)
	}
	if flagStaged {
		selected = append(selected, gitfiles.SourceStaged)
	}
	if flagTracked {
		selected = append(selected, gitfiles.SourceTracked)
	}
	switch len(selected) {
	case 0:
		return "", nil
	case 1:
		return selected[0], nil
	default:
		return "", errors.New("--changed, --staged and --tracked are mutually exclusive")
	}
}

func collectSources(args []string, cfg config.Config) ([]fileset.Source, error) {
	src, err := gitSource()
	if err != nil {
		return nil, err
	}
	paths := args
	if src != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("file arguments cannot be combined with --%s", src)
		}
		paths, err = gitfiles.Collect(src, buildGitOpts(cfg))
		if err != nil {
			return nil, err
		}
	}

	sources := make([]fileset.Source, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		sources = append(sources, fileset.Source{
			Name: filepath.ToSlash(filepath.Clean(p)),
			Path: p,
		})
	}
	return sources, nil
}

func buildStore(cfg config.Config) (cache.Store, error) {
	mem := cache.NewMemory()
	if !cfg.Cache.Enabled || !cfg.Cache.Persist {
		return mem, nil
	}
	disk, err := cache.NewDisk(true, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return cache.NewLayered(mem, disk), nil
}

// runBatch processes the selected files in one mode and writes the report.
// Failures are reported through exitCode.
func runBatch(mode analysis.Mode, args []string) error {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return err
	}
	if mode == analysis.ModeFormat && cfg.Run.Engine == "gpt" {
		mode = analysis.ModeGPTFormat
	}

	logger, closer := logging.Setup(cfg.Log, flagVerbose, os.Stderr)
	defer closer.Close()

	sources, err := collectSources(args, cfg)
	if err != nil {
		return err
	}

	set := fileset.New(cfg.RunConfigFor(mode, ""))
	notice := set.Add(sources...)
	for _, name := range notice.Duplicates {
		fmt.Fprintf(os.Stderr, "Skipping duplicate file: %s\n", name)
	}
	if len(args) > 0 && flagExclude != "" {
		if err := dropExcluded(set, splitComma(flagExclude)); err != nil {
			return err
		}
	}
	if set.Len() == 0 {
		fmt.Fprintln(os.Stderr, "No files to process.")
		return nil
	}
	for _, r := range set.Records() {
		if err := set.SetConfig(r.Name, cfg.RunConfigFor(mode, r.Name)); err != nil {
			return err
		}
	}

	client, err := service.New(service.Options{
		BaseURL:           cfg.Service.URL,
		Timeout:           cfg.Timeout(),
		MaxRetries:        cfg.Service.MaxRetries,
		RequestsPerSecond: cfg.Service.RequestsPerSecond,
	})
	if err != nil {
		return err
	}
	analyzer := &authTracker{Analyzer: client}

	store, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return nil
	}

	identity, err := analysis.ParseIdentity(cfg.Cache.Identity)
	if err != nil {
		return err
	}

	orch := batch.New(analyzer, store, batch.Options{
		Identity: identity,
		Logger:   logger,
		Version:  version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := orch.Run(ctx, set.Jobs(), progressLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return nil
	}
	set.Attach(report.Outcomes)
	reportFailures(set)

	if cfg.Privacy.MaskOutput {
		report = redact.NewMasker(cfg.Privacy.MaskKeys).Report(report)
	}

	if err := output.WriteReport(report, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return nil
	}

	if flagArchive != "" {
		n, err := output.WriteArchiveFile(report, flagArchive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing archive: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		fmt.Fprintf(os.Stderr, "Archived %d file(s) to %s\n", n, flagArchive)
	}

	switch {
	case analyzer.denied.Load():
		fmt.Fprintln(os.Stderr, "Error: the analysis service rejected the credentials")
		exitCode = ExitAuthError
	case flagFailOnError && report.Counts.Failed > 0:
		exitCode = ExitFailures
	}
	return nil
}

// dropExcluded removes explicitly named files matching an exclude glob.
// Records are visited from the end so indexes stay valid.
func dropExcluded(set *fileset.Set, patterns []string) error {
	records := set.Records()
	for i := len(records) - 1; i >= 0; i-- {
		name := records[i].Name
		if !gitfiles.MatchesAny(name, patterns) && !gitfiles.MatchesAny(filepath.Base(name), patterns) {
			continue
		}
		if _, err := set.Remove(i); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Excluded: %s\n", name)
	}
	return nil
}

// reportFailures lists every file whose latest outcome failed.
func reportFailures(set *fileset.Set) {
	for _, r := range set.Records() {
		o, ok := set.Outcome(r.Name)
		if !ok || o.Status != analysis.StatusFailed {
			continue
		}
		fmt.Fprintf(os.Stderr, "Failed: %s: %s\n", r.Name, o.Err)
	}
}

func progressLogger(logger zerolog.Logger) func(done, total int) {
	return func(done, total int) {
		logger.Debug().Int("done", done).Int("total", total).Msg("batch progress")
	}
}

// authTracker records whether any service call was rejected for
// authentication, so the CLI can exit with ExitAuthError.
type authTracker struct {
	service.Analyzer
	denied atomic.Bool
}

func (a *authTracker) note(resp service.Response, err error) (service.Response, error) {
	if service.IsAuthError(err) {
		a.denied.Store(true)
	}
	return resp, err
}

func (a *authTracker) Format(ctx context.Context, up service.Upload, opts analysis.FormatOptions) (service.Response, error) {
	return a.note(a.Analyzer.Format(ctx, up, opts))
}

func (a *authTracker) GPTFormat(ctx context.Context, up service.Upload, language, model string) (service.Response, error) {
	return a.note(a.Analyzer.GPTFormat(ctx, up, language, model))
}

func (a *authTracker) Review(ctx context.Context, up service.Upload, model string, summaryOnly bool) (service.Response, error) {
	return a.note(a.Analyzer.Review(ctx, up, model, summaryOnly))
}

func (a *authTracker) StaticAnalyze(ctx context.Context, up service.Upload, gptFeedback bool, model string) (service.Response, error) {
	return a.note(a.Analyzer.StaticAnalyze(ctx, up, gptFeedback, model))
}
