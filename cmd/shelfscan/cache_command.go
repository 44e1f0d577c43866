package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shelfscan/internal/tieredcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the lookup cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage per namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			cache, release, err := ctx.openCache(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer release()

			stats := cache.Stats(cmd.Context())
			usage := cache.Usage(cmd.Context())
			if jsonOutput {
				return writeJSON(cmd, struct {
					Backend    string                       `json:"backend"`
					MaxBytes   int64                        `json:"maxBytes"`
					Stats      tieredcache.Stats            `json:"stats"`
					Namespaces []tieredcache.NamespaceUsage `json:"namespaces"`
				}{cfg.Cache.Backend, cfg.Cache.MaxBytes, stats, usage})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s (%s)\n", cfg.Cache.Backend, cfg.Paths.CacheDir)
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:    %s / %s\n", humanize.IBytes(uint64(stats.TotalBytes)), humanize.IBytes(uint64(cfg.Cache.MaxBytes)))
			printNamespaceUsage(out, usage)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print usage as JSON")
	return cmd
}

func printNamespaceUsage(out io.Writer, usage []tieredcache.NamespaceUsage) {
	if len(usage) == 0 {
		fmt.Fprintln(out, "Namespaces: none")
		return
	}
	rows := make([][]string, 0, len(usage))
	for _, ns := range usage {
		rows = append(rows, []string{
			ns.Namespace,
			strconv.Itoa(ns.Entries),
			humanize.IBytes(uint64(ns.Bytes)),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Namespace", "Entries", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [namespace]",
		Short: "Remove cached entries (all namespaces when none is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			cache, release, err := ctx.openCache(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer release()

			namespace := ""
			if len(args) == 1 {
				namespace = strings.TrimSpace(args[0])
			}
			before := cache.Stats(cmd.Context())
			cache.Clear(cmd.Context(), namespace)
			after := cache.Stats(cmd.Context())

			label := "all namespaces"
			if namespace != "" {
				label = "namespace " + namespace
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s: removed %d entries (%s)\n",
				label, before.Entries-after.Entries, humanize.IBytes(uint64(before.TotalBytes-after.TotalBytes)))
			return nil
		},
	}
}
