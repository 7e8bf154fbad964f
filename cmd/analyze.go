package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"mp3nema/analyzer"
	"mp3nema/output"
	"mp3nema/stego"
)

func (a *app) newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze <file.mp3>",
		Short: "Count frames and tags and report out-of-band data",
		Long: `Scan an MP3 file and print the number of frames and ID3v2 tags. Every run
of bytes outside a frame or tag is reported, byte by byte with -v.

Examples:
  mp3nema analyze song.mp3 -v
  mp3nema analyze song-injected-1.mp3 --extract --lz4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extract, _ := cmd.Flags().GetBool("extract")
			unpack, _ := cmd.Flags().GetBool("lz4")
			return a.runAnalyze(cmd, args[0], extract || unpack, unpack)
		},
	}
	analyzeCmd.Flags().BoolP("extract", "e", false, "extract out-of-band data to a file")
	analyzeCmd.Flags().Bool("lz4", false, "decompress the extracted data (payload injected with --lz4)")
	return analyzeCmd
}

func (a *app) runAnalyze(cmd *cobra.Command, path string, extract, unpack bool) error {
	out := cmd.OutOrStdout()
	opts := analyzer.Options{
		MaxFrameRetries: a.cfg.Scan.MaxFrameRetries,
		Regions:         true,
		Reporter:        &analyzer.Reporter{Out: out, Verbose: a.cfg.Logging.Verbose},
		Metrics:         a.metrics,
	}

	var oobFile *os.File
	if extract {
		f, err := output.Create(a.cfg.OutputDir, path, "extracted-oob", "dat", false)
		if err != nil {
			log.Printf("Could not create a file to store out of band data, normal analysis will still occur: %v", err)
		} else {
			defer f.Close()
			oobFile = f
			opts.OOBSink = f
		}
	}

	report, err := analyzer.AnalyzeFile(path, opts)
	if err != nil {
		return err
	}
	report.Print(out)
	if report.AncillaryBytes > 0 {
		fmt.Fprintf(out, "%s Ancillary bytes inside Layer III frames: %d\n", analyzer.Prefix, report.AncillaryBytes)
	}

	if oobFile == nil {
		return nil
	}
	fmt.Fprintf(out, "%s Out-of-band data written to %s\n", analyzer.Prefix, oobFile.Name())
	if !unpack {
		return nil
	}
	if err := oobFile.Sync(); err != nil {
		return err
	}
	return a.unpackFile(cmd, path, oobFile.Name())
}

func (a *app) unpackFile(cmd *cobra.Command, source, packed string) error {
	in, err := os.Open(packed)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := output.Create(a.cfg.OutputDir, source, "unpacked", "dat", false)
	if err != nil {
		return err
	}
	defer out.Close()

	n, err := stego.Unpack(in, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Unpacked %d bytes to %s\n", analyzer.Prefix, n, out.Name())
	return nil
}
