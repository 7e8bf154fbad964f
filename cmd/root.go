package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"mp3nema/config"
	"mp3nema/metrics"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	metrics *metrics.Metrics
}

// NewRootCmd builds the command tree. The root command keeps the classic
// interface: mp3nema <source> [-c] [-e | -i file] [-v].
func NewRootCmd() *cobra.Command {
	a := &app{metrics: metrics.Default()}

	rootCmd := &cobra.Command{
		Use:   "mp3nema <source.mp3 | directory | stream-url>",
		Short: "MP3 analysis, data capturing and data hiding utility",
		Long: `mp3nema scans MPEG audio files and live streams for frames, ID3v2 tags
and the out-of-band bytes between them. It can extract those bytes, capture
a stream to disk, or hide a payload between the frames of one or more files.

A source that is an existing file is analyzed, anything else is treated as a
stream URL. With -i the source is the destination file or directory.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
		RunE: a.runRoot,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", config.GetDefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "dump out-of-frame data byte by byte")
	rootCmd.PersistentFlags().String("output-dir", "", "directory for generated files (default from config)")

	rootCmd.Flags().BoolP("capture", "c", false, "capture audio from a network stream")
	rootCmd.Flags().BoolP("extract", "e", false, "extract out-of-band data to a file")
	rootCmd.Flags().StringP("inject", "i", "", "inject data from `file` between the frames")
	rootCmd.MarkFlagsMutuallyExclusive("extract", "inject")

	rootCmd.AddCommand(
		a.newAnalyzeCmd(),
		a.newInjectCmd(),
		a.newStreamCmd(),
		a.newServeCmd(),
		a.newConfigCmd(),
	)
	return rootCmd
}

// Execute runs the command line. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadOrDefault(a.cfgFile)
	if err != nil {
		return err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Verbose = true
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.OutputDir = dir
	}
	a.cfg = cfg
	return nil
}

func (a *app) runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	source := args[0]

	capture, _ := cmd.Flags().GetBool("capture")
	extract, _ := cmd.Flags().GetBool("extract")
	payload, _ := cmd.Flags().GetString("inject")

	switch {
	case payload != "":
		return a.runInject(cmd, source, payload, injectFlags{guard: -1})
	case isFile(source):
		return a.runAnalyze(cmd, source, extract, false)
	default:
		return a.runStream(cmd, source, capture, extract, a.cfg.Stream.IgnoreFirstOOB)
	}
}

func isFile(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular()
}
