package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codecheck/internal/analysis"
	"github.com/dshills/codecheck/internal/config"
	"github.com/dshills/codecheck/internal/gitfiles"
)

const (
	hookMarkerStart = "# >>> codecheck pre-commit hook >>>"
	hookMarkerEnd   = "# <<< codecheck pre-commit hook <<<"
	hookShebang     = "#!/bin/sh"
)

var (
	hookMode         string
	hookFormat       string
	hookWarnOnAuth   bool
	hookBlockOnError bool
)

// hookScript is the codecheck section of a pre-commit hook. It runs one
// mode over the staged files and maps codecheck's exit codes onto a
// commit decision.
type hookScript struct {
	Mode         analysis.Mode
	Format       string
	BlockOnAuth  bool
	BlockOnError bool
}

func newHookScript(cfg config.HookConfig) hookScript {
	return hookScript{
		Mode:         analysis.Mode(cfg.Mode),
		Format:       cfg.Format,
		BlockOnAuth:  cfg.BlockOnAuth,
		BlockOnError: cfg.BlockOnError,
	}
}

// String renders the marked section, including both markers.
func (h hookScript) String() string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s + "\n")
	}
	decide := func(code int, block bool, reason string) {
		if block {
			line(fmt.Sprintf("  %d) echo \"codecheck: %s, commit blocked\" >&2; exit 1 ;;", code, reason))
			return
		}
		line(fmt.Sprintf("  %d) echo \"codecheck: warning: %s, commit allowed\" >&2 ;;", code, reason))
	}

	line(hookMarkerStart)
	line(fmt.Sprintf("codecheck %s --staged --fail-on-error --format %s", h.Mode, h.Format))
	line("codecheck_status=$?")
	line("case $codecheck_status in")
	line(fmt.Sprintf("  %d) ;;", ExitSuccess))
	decide(ExitFailures, true, fmt.Sprintf("%s failed for staged files", h.Mode))
	decide(ExitUsageError, true, "hook command is invalid, reinstall with 'codecheck hook install'")
	decide(ExitAuthError, h.BlockOnAuth, "analysis service rejected the credentials (check CODECHECK_API_KEY)")
	decide(ExitRuntimeError, h.BlockOnError, "analysis did not complete")
	line("  *) echo \"codecheck: warning: unexpected exit status $codecheck_status, commit allowed\" >&2 ;;")
	line("esac")
	line(hookMarkerEnd)
	return b.String()
}

// spliceHookSection replaces the codecheck section of an existing hook with
// section, appending it when there is none. An empty section removes it.
func spliceHookSection(existing, section string) string {
	start := strings.Index(existing, hookMarkerStart)
	end := strings.Index(existing, hookMarkerEnd)
	if start == -1 || end < start {
		if section == "" {
			return existing
		}
		if existing != "" && !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}
	after := strings.TrimPrefix(existing[end+len(hookMarkerEnd):], "\n")
	return existing[:start] + section + after
}

// installHook writes section into the hook at path, creating the file when
// needed. It reports whether the file was created.
func installHook(path, section string) (bool, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("reading hook file: %w", err)
	}
	created := len(strings.TrimSpace(string(existing))) == 0
	content := hookShebang + "\n" + section
	if !created {
		content = spliceHookSection(string(existing), section)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating hooks directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return false, fmt.Errorf("writing hook file: %w", err)
	}
	return created, nil
}

// hookRemoval describes what uninstallHook did.
type hookRemoval int

const (
	hookAbsent hookRemoval = iota
	hookDeleted
	hookSectionRemoved
)

// uninstallHook removes the codecheck section from the hook at path. A hook
// left with nothing but a shebang is deleted.
func uninstallHook(path string) (hookRemoval, error) {
	existing, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return hookAbsent, nil
		}
		return hookAbsent, fmt.Errorf("reading hook file: %w", err)
	}
	if !strings.Contains(string(existing), hookMarkerStart) {
		return hookAbsent, nil
	}
	content := spliceHookSection(string(existing), "")
	switch strings.TrimSpace(content) {
	case "", hookShebang, "#!/bin/bash":
		if err := os.Remove(path); err != nil {
			return hookAbsent, fmt.Errorf("removing hook file: %w", err)
		}
		return hookDeleted, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return hookAbsent, fmt.Errorf("writing hook file: %w", err)
	}
	return hookSectionRemoved, nil
}

// loadHookScript resolves the hook settings from config and flags.
func loadHookScript() (hookScript, error) {
	overrides := map[string]string{
		"hook.mode":   hookMode,
		"hook.format": hookFormat,
	}
	if hookWarnOnAuth {
		overrides["hook.block_on_auth"] = "false"
	}
	if hookBlockOnError {
		overrides["hook.block_on_error"] = "true"
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return hookScript{}, err
	}
	return newHookScript(cfg.Hook), nil
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-commit hook",
	Long: `Manage the git pre-commit hook.

The hook runs one codecheck mode over the staged files. Failed files always
block the commit and so does an invalid hook command. A credential rejection
blocks unless --warn-on-auth is set (hook.block_on_auth). An incomplete run,
for example an unreachable service, only warns unless --block-on-error is
set (hook.block_on_error).`,
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or update the codecheck pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := loadHookScript()
		if err != nil {
			return err
		}
		path, err := gitfiles.HookPath(gitfiles.Options{}, "pre-commit")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		created, err := installHook(path, script.String())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		verb := "Updated"
		if created {
			verb = "Installed"
		}
		fmt.Fprintf(os.Stdout, "%s codecheck pre-commit hook (%s) at %s\n", verb, script.Mode, path)
		return nil
	},
}

var hookPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the hook section without installing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := loadHookScript()
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, script.String())
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the codecheck pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := gitfiles.HookPath(gitfiles.Options{}, "pre-commit")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		removal, err := uninstallHook(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		switch removal {
		case hookAbsent:
			fmt.Fprintln(os.Stdout, "No codecheck pre-commit hook found.")
		case hookDeleted:
			fmt.Fprintf(os.Stdout, "Removed pre-commit hook %s\n", path)
		case hookSectionRemoved:
			fmt.Fprintf(os.Stdout, "Removed codecheck section from %s\n", path)
		}
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookPrintCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	for _, c := range []*cobra.Command{hookInstallCmd, hookPrintCmd} {
		c.Flags().StringVar(&hookMode, "mode", "", "Mode run on staged files: format, review or scan (default hook.mode)")
		c.Flags().StringVar(&hookFormat, "format", "", "Report format (default hook.format)")
		c.Flags().BoolVar(&hookWarnOnAuth, "warn-on-auth", false, "Allow the commit when the service rejects the credentials")
		c.Flags().BoolVar(&hookBlockOnError, "block-on-error", false, "Block the commit when the analysis does not complete")
	}
}
