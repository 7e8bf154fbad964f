package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mp3nema/analyzer"
	"mp3nema/stream"
)

func (a *app) newStreamCmd() *cobra.Command {
	streamCmd := &cobra.Command{
		Use:   "stream <url>",
		Short: "Analyze a live MP3 stream until it ends or is interrupted",
		Long: `Connect to an HTTP or ICY stream, follow a playlist or redirect if the
server sends one, and scan the audio as it arrives. Interrupt with Ctrl-C.

Examples:
  mp3nema stream http://radio.example.com:8000/live -v
  mp3nema stream radio.example.com/listen.pls --capture --extract`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			capture, _ := cmd.Flags().GetBool("capture")
			extract, _ := cmd.Flags().GetBool("extract")
			ignore := a.cfg.Stream.IgnoreFirstOOB
			if cmd.Flags().Changed("ignore-first-oob") {
				ignore, _ = cmd.Flags().GetBool("ignore-first-oob")
			}
			return a.runStream(cmd, args[0], capture, extract, ignore)
		},
	}
	streamCmd.Flags().BoolP("capture", "c", false, "capture the raw stream to a file")
	streamCmd.Flags().BoolP("extract", "e", false, "extract out-of-band data to a file")
	streamCmd.Flags().Bool("ignore-first-oob", false, "do not report the first out-of-band batch (response headers)")
	return streamCmd
}

func (a *app) runStream(cmd *cobra.Command, url string, capture, extract, ignoreFirst bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	s, err := stream.NewSession(url, stream.Options{
		ReadUnit:        a.cfg.Stream.ReadUnit,
		WindowUnits:     a.cfg.Stream.WindowUnits,
		RedirectTimeout: a.cfg.Stream.RedirectTimeout,
		IgnoreFirstOOB:  ignoreFirst,
		Capture:         capture,
		Extract:         extract,
		OutputDir:       a.cfg.OutputDir,
		Reporter:        &analyzer.Reporter{Out: out, Verbose: a.cfg.Logging.Verbose},
		Metrics:         a.metrics,
	})
	if err != nil {
		return err
	}
	if err := s.Open(ctx); err != nil {
		return err
	}
	defer s.Close()

	runErr := s.Run(ctx)

	stats := s.Stats()
	fmt.Fprintf(out, "%s Frames: %d\n", analyzer.Prefix, stats.Frames)
	fmt.Fprintf(out, "%s ID3v2 Tags: %d\n", analyzer.Prefix, stats.Tags)
	fmt.Fprintf(out, "%s Out-of-frame bytes: %d\n", analyzer.Prefix, stats.OOBBytes)
	if stats.Desyncs > 0 {
		fmt.Fprintf(out, "%s Resynchronizations: %d\n", analyzer.Prefix, stats.Desyncs)
	}
	return runErr
}
