package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfscan/internal/preflight"
	"shelfscan/internal/scanner"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var skipDevices bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, services and capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			var enumerator scanner.Enumerator
			if !skipDevices {
				enumerator = scanner.NewUdevEnumerator(cfg.Scanner.DeviceSubsystems, logger)
			}
			results := preflight.RunAll(cmd.Context(), cfg, enumerator)

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipDevices, "skip-devices", false, "Skip the capture device check")
	return cmd
}
