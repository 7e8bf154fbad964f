package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mp3nema/analyzer"
	"mp3nema/audio"
	"mp3nema/stego"
)

type injectFlags struct {
	guard  int // negative: use the configured guard
	lz4    bool
	verify bool
}

func (a *app) newInjectCmd() *cobra.Command {
	var flags injectFlags

	injectCmd := &cobra.Command{
		Use:   "inject <file.mp3 | directory> <payload>",
		Short: "Hide a payload between the frames of one or more MP3 files",
		Long: `Spread the payload across the gaps between frames. Frames and tags are
copied unchanged, so the output is exactly the payload size larger and plays
like the destination file. When the target is a directory the payload is split
across every matching file in it.

Examples:
  mp3nema inject song.mp3 secret.txt
  mp3nema inject ./album secret.tar --lz4 --guard 10`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInject(cmd, args[0], args[1], flags)
		},
	}
	injectCmd.Flags().IntVar(&flags.guard, "guard", -1, "leading frames left untouched (default from config)")
	injectCmd.Flags().BoolVar(&flags.lz4, "lz4", false, "compress the payload before injecting it")
	injectCmd.Flags().BoolVar(&flags.verify, "verify", false, "decode both files and compare the audio")
	return injectCmd
}

func (a *app) runInject(cmd *cobra.Command, target, payload string, flags injectFlags) error {
	out := cmd.OutOrStdout()

	opts := stego.BatchOptions{
		Options: stego.Options{
			Guard:           a.cfg.GuardFrames,
			MaxFrameRetries: a.cfg.Scan.MaxFrameRetries,
		},
		MediaExt:  a.cfg.MediaExt,
		OutputDir: a.cfg.OutputDir,
		LZ4:       flags.lz4,
		Metrics:   a.metrics,
	}
	if flags.guard >= 0 {
		opts.Guard = flags.guard
	}

	results, err := stego.InjectAll(target, payload, opts)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", analyzer.Prefix, r.Destination.Path, r.Err)
			continue
		}
		fmt.Fprintf(out, "%s %s -> %s: %d bytes in %d blocks after %d guard frames\n",
			analyzer.Prefix, r.Destination.Path, r.Output, r.Result.Injected, r.Result.Plan.BlockCount, r.Result.Plan.Guard)

		if flags.verify {
			if err := verifyOutput(out, r.Destination.Path, r.Output); err != nil {
				fmt.Fprintf(out, "%s could not verify %s: %v\n", analyzer.Prefix, r.Output, err)
			}
		}
	}

	if failed == len(results) {
		return errors.New("injection failed for every destination")
	}
	return nil
}

func verifyOutput(out io.Writer, original, injected string) error {
	origData, err := os.ReadFile(original)
	if err != nil {
		return err
	}
	injData, err := os.ReadFile(injected)
	if err != nil {
		return err
	}

	v, err := audio.Verify(origData, injData, audio.DefaultPSNRThreshold)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s PSNR %.2f dB, transparent: %t\n", analyzer.Prefix, v.PSNR, v.Transparent)
	return nil
}
