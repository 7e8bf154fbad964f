package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mp3nema/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the config path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if config.ConfigExists(a.cfgFile) && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", a.cfgFile)
			}
			if err := config.SaveConfig(config.DefaultConfig(), a.cfgFile); err != nil {
				return err
			}
			cmd.Printf("Configuration written to %s\n", a.cfgFile)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Printf("guard_frames: %d\n", a.cfg.GuardFrames)
			cmd.Printf("media_ext: %s\n", a.cfg.MediaExt)
			cmd.Printf("output_dir: %s\n", a.cfg.OutputDir)
			cmd.Printf("scan.max_frame_retries: %d\n", a.cfg.Scan.MaxFrameRetries)
			cmd.Printf("stream.read_unit: %d\n", a.cfg.Stream.ReadUnit)
			cmd.Printf("stream.window_units: %d\n", a.cfg.Stream.WindowUnits)
			cmd.Printf("stream.redirect_timeout: %s\n", a.cfg.Stream.RedirectTimeout)
			cmd.Printf("stream.ignore_first_oob: %t\n", a.cfg.Stream.IgnoreFirstOOB)
			cmd.Printf("server.port: %d\n", a.cfg.Server.Port)
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}
