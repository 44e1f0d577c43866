package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"shelfscan/internal/identification"
	"shelfscan/internal/notifications"
	"shelfscan/internal/scanner"
	"shelfscan/internal/services"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var skipDeviceCheck bool
	var singleShot bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a scanning session over keyboard-wedge input",
		Long: `Read barcodes from standard input, one per line, and resolve each one.
Keyboard-wedge scanners type the barcode followed by Enter, so pointing the
scanner at this terminal is enough. Repeated barcodes are skipped and scans
closer together than the configured interval are ignored.

Press Ctrl+D to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if singleShot {
				cfg.Scanner.Continuous = false
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			resolver, logger, release, err := ctx.resolverStack(runCtx)
			if err != nil {
				return err
			}
			defer release()

			var enumerator scanner.Enumerator = scanner.NewUdevEnumerator(cfg.Scanner.DeviceSubsystems, logger)
			if skipDeviceCheck {
				enumerator = scanner.StaticEnumerator{{Path: "stdin", Subsystem: "tty"}}
			}

			opts := []scanner.Option{scanner.WithEnumerator(enumerator)}
			if cfg.Scanner.Haptics {
				if f, ok := cmd.ErrOrStderr().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
					opts = append(opts, scanner.WithHaptics(scanner.NewBellHaptics(f)))
				}
			}

			handler := func(ctx context.Context, barcode string) (any, error) {
				return resolver.Resolve(ctx, barcode)
			}
			session := scanner.NewSession(cfg, handler, logger, opts...)
			if err := session.Initialize(runCtx, scanner.NewLineSource(cmd.InOrStdin())); err != nil {
				if errors.Is(err, scanner.ErrNoCaptureDevices) {
					return fmt.Errorf("%w; connect a scanner or rerun with --skip-device-check", err)
				}
				return err
			}

			if !skipDeviceCheck {
				monitor := scanner.NewDeviceMonitor(cfg, logger,
					func() string { return session.Device().Path },
					session.DeviceRemoved,
					nil,
				)
				if err := monitor.Start(runCtx); err != nil {
					return err
				}
				defer monitor.Stop()
			}

			if err := session.Start(runCtx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanning from %s (session %s)\n", session.Device().Path, session.ID())

			alerts := newAlerter(notifications.NewService(cfg), logger)
			started := time.Now()
			results, failed := runScanLoop(runCtx, session, out, alerts)
			printScanSummary(out, results)
			if len(results) > 0 || failed > 0 {
				alerts.sessionSummary(runCtx, results, failed, time.Since(started))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipDeviceCheck, "skip-device-check", false, "Read stdin without requiring an attached capture device")
	cmd.Flags().BoolVar(&singleShot, "once", false, "Stop after the first successful resolution")
	return cmd
}

// runScanLoop prints session events until the session stops or ctx ends. It
// returns every completed resolution in order and the number of failed lookups.
func runScanLoop(ctx context.Context, session *scanner.Session, out io.Writer, alerts *alerter) ([]*identification.Resolution, int) {
	var results []*identification.Resolution
	failed := 0
	record := func(evt scanner.Event) bool {
		if res := printScanEvent(out, evt); res != nil {
			results = append(results, res)
		}
		if evt.Status == scanner.StatusFailed {
			failed++
		}
		alerts.scanEvent(ctx, evt)
		return evt.Status == scanner.StatusStopped || evt.Status == scanner.StatusDeviceLost
	}

	for {
		select {
		case <-ctx.Done():
			session.Stop()
			session.Wait()
			drainEvents(session, record)
			return results, failed
		case evt := <-session.Events():
			if record(evt) {
				session.Wait()
				drainEvents(session, record)
				return results, failed
			}
		}
	}
}

func drainEvents(session *scanner.Session, record func(scanner.Event) bool) {
	for {
		select {
		case evt := <-session.Events():
			record(evt)
		default:
			return
		}
	}
}

func printScanEvent(out io.Writer, evt scanner.Event) *identification.Resolution {
	switch evt.Status {
	case scanner.StatusAccepted:
		fmt.Fprintf(out, "→ %s resolving\n", evt.Barcode)
	case scanner.StatusProcessing:
		fmt.Fprintf(out, "… %s is still being resolved\n", evt.Barcode)
	case scanner.StatusDuplicate:
		fmt.Fprintf(out, "• %s already scanned this session\n", evt.Barcode)
	case scanner.StatusInvalid:
		fmt.Fprintf(out, "✗ %q is not a valid barcode\n", evt.Barcode)
	case scanner.StatusFailed:
		fmt.Fprintf(out, "✗ %s: %s\n", evt.Barcode, services.UserMessage(evt.Err))
	case scanner.StatusStale:
		fmt.Fprintf(out, "✗ %s timed out; scan it again\n", evt.Barcode)
	case scanner.StatusDeviceLost:
		fmt.Fprintln(out, "Capture device disconnected; session stopped")
	case scanner.StatusCompleted:
		res, ok := evt.Result.(*identification.Resolution)
		if !ok || res == nil {
			return nil
		}
		marker := "✓"
		if res.NeedsReview {
			marker = "⚠"
		}
		fmt.Fprintf(out, "%s %s → %s (%.1f)\n", marker, res.Barcode, res.Candidate.Title, res.Confidence)
		return res
	}
	return nil
}

func printScanSummary(out io.Writer, results []*identification.Resolution) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No barcodes resolved")
		return
	}
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		year := ""
		if match := res.Candidate.Match; match != nil && match.ReleaseYear > 0 {
			year = strconv.Itoa(match.ReleaseYear)
		}
		rows = append(rows, []string{
			res.Barcode,
			res.Candidate.Title,
			year,
			fmt.Sprintf("%.1f", res.Confidence),
			yesNo(res.NeedsReview),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Barcode", "Title", "Year", "Confidence", "Review"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}
