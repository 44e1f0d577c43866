package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shelfscan/internal/identification"
	"shelfscan/internal/logging"
	"shelfscan/internal/notifications"
	"shelfscan/internal/services"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resolve <barcode>",
		Short: "Resolve a barcode to movie or TV metadata",
		Long: `Look up the product behind a barcode, clean its title and search TMDB for
the best match. Results are cached, so repeating a barcode is served locally.

Examples:
  shelfscan resolve 883929736171
  shelfscan resolve 883929736171 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, logger, release, err := ctx.resolverStack(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			res, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				logger.Debug("resolve failed", logging.Error(err))
				return fmt.Errorf("resolve %s: %s", strings.TrimSpace(args[0]), services.UserMessage(err))
			}
			if cfg, cfgErr := ctx.ensureConfig(); cfgErr == nil {
				newAlerter(notifications.NewService(cfg), logger).resolution(cmd.Context(), res)
			}
			if jsonOutput {
				return writeJSON(cmd, res)
			}
			printResolution(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full resolution as JSON")
	return cmd
}

func printResolution(out io.Writer, res *identification.Resolution) {
	var product, brand string
	if res.UPCData != nil {
		product = res.UPCData.RawTitle
		brand = res.UPCData.Brand
	}
	var tmdbID, mediaType, year string
	if match := res.Candidate.Match; match != nil {
		tmdbID = strconv.FormatInt(match.ExternalID, 10)
		mediaType = match.MediaType
		if match.ReleaseYear > 0 {
			year = strconv.Itoa(match.ReleaseYear)
		}
	}
	if year == "" && res.ExtractedYear > 0 {
		year = strconv.Itoa(res.ExtractedYear)
	}

	review := "no"
	if res.NeedsReview {
		review = "yes"
		if res.ReviewReason != "" {
			review += " (" + res.ReviewReason + ")"
		}
	}
	match := res.Candidate.Title
	if res.Candidate.IsPlaceholder() {
		match += " (placeholder)"
	}

	edition := res.PhysicalEdition
	fmt.Fprintln(out, renderDetails([][2]string{
		{"Barcode", res.Barcode},
		{"Product", product},
		{"Brand", brand},
		{"Clean title", res.CleanTitle},
		{"Match", match},
		{"Year", year},
		{"TMDB ID", tmdbID},
		{"Media type", mediaType},
		{"Confidence", fmt.Sprintf("%.1f", res.Confidence)},
		{"Strategy", res.Strategy},
		{"Format", edition.Format},
		{"Edition", edition.Edition},
		{"Region", edition.Region},
		{"Distributor", edition.Distributor},
		{"Features", strings.Join(edition.Features, ", ")},
		{"Needs review", review},
		{"Request", res.RequestID},
	}))
}
