package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codecheck/internal/cache"
	"github.com/dshills/codecheck/internal/config"
)

var (
	flagCacheExpired bool
	flagCacheFormat  string
)

// cacheStatus is what `cache show` reports: the settings that decide how
// results are keyed and kept, plus the on-disk statistics.
type cacheStatus struct {
	Enabled    bool        `json:"enabled" yaml:"enabled"`
	Persist    bool        `json:"persist" yaml:"persist"`
	Identity   string      `json:"identity" yaml:"identity"`
	TTLSeconds int         `json:"ttlSeconds" yaml:"ttlSeconds"`
	Disk       cache.Stats `json:"disk" yaml:"disk"`
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached results",
	Long: `Remove cached results from the persistent cache.

With --expired only entries older than cache.ttl_seconds (and files left by
interrupted writes) are removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, _, err := openDisk(true)
		if err != nil {
			return err
		}
		if flagCacheExpired {
			n, err := disk.Prune()
			if err != nil {
				return fmt.Errorf("pruning cache: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Removed %d expired entr%s from %s\n", n, plural(n, "y", "ies"), disk.Dir())
			return nil
		}
		if err := disk.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Cleared %s\n", disk.Dir())
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache settings and statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, cfg, err := openDisk(false)
		if err != nil {
			return err
		}
		status := cacheStatus{
			Enabled:    cfg.Cache.Enabled,
			Persist:    cfg.Cache.Persist,
			Identity:   cfg.Cache.Identity,
			TTLSeconds: cfg.Cache.TTLSeconds,
		}
		if disk.Enabled() {
			if status.Disk, err = disk.GetStats(); err != nil {
				return fmt.Errorf("reading cache stats: %w", err)
			}
		}
		return writeCacheStatus(os.Stdout, status, flagCacheFormat)
	},
}

// openDisk opens the configured disk layer. force opens it even when
// persistence is switched off, so stale files can still be cleared.
func openDisk(force bool) (*cache.Disk, config.Config, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, config.Config{}, err
	}
	enabled := force || (cfg.Cache.Enabled && cfg.Cache.Persist)
	disk, err := cache.NewDisk(enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("opening cache: %w", err)
	}
	return disk, cfg, nil
}

func writeCacheStatus(w io.Writer, s cacheStatus, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		return yaml.NewEncoder(w).Encode(s)
	case "", "text":
	default:
		return fmt.Errorf("unknown format: %s (want text, json or yaml)", format)
	}

	persist := "off"
	if s.Enabled && s.Persist {
		persist = "on"
	}
	ttl := "never"
	if s.TTLSeconds > 0 {
		ttl = strconv.Itoa(s.TTLSeconds) + "s"
	}
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk([][]string{
		{"persistent", persist},
		{"identity", s.Identity},
		{"expires after", ttl},
	})
	if s.Disk.Dir != "" {
		table.AppendBulk([][]string{
			{"directory", s.Disk.Dir},
			{"entries", strconv.Itoa(s.Disk.Entries)},
			{"expired", strconv.Itoa(s.Disk.Expired)},
			{"size", strconv.FormatInt(s.Disk.TotalBytes, 10) + " bytes"},
		})
	}
	table.Render()
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheClearCmd.Flags().BoolVar(&flagCacheExpired, "expired", false, "Only remove expired entries")
	cacheShowCmd.Flags().StringVar(&flagCacheFormat, "format", "text", "Output format (text, json, yaml)")
}
