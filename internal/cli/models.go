package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codecheck/internal/analysis"
	"github.com/dshills/codecheck/internal/config"
	"github.com/dshills/codecheck/internal/service"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Model listing and service checks",
}

type modelInfo struct {
	Name string
	Note string
}

var knownModels = []modelInfo{
	{Name: "gpt-3.5-turbo", Note: "default, fastest"},
	{Name: "gpt-4", Note: "higher quality reviews"},
	{Name: "gpt-4-1106-preview", Note: "long context"},
	{Name: "gpt-4o", Note: "balanced"},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known GPT models",
	Run: func(cmd *cobra.Command, args []string) {
		for _, m := range knownModels {
			marker := " "
			if m.Name == analysis.DefaultModel {
				marker = "*"
			}
			fmt.Fprintf(os.Stdout, "%s %-20s %s\n", marker, m.Name, m.Note)
		}
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the analysis service is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		client, err := service.New(service.Options{
			BaseURL: cfg.Service.URL,
			Timeout: cfg.Timeout(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		fmt.Fprintf(os.Stdout, "Checking %s...\n", client.BaseURL())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		status, err := client.Ping(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			if service.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			return nil
		}

		fmt.Fprintf(os.Stdout, "OK: service responded with status %d\n", status)
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	modelsDoctorCmd.Flags().StringVar(&flagServiceURL, "service-url", "", "Analysis service base URL")
}
