package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/services"
	"github.com/Belphemur/TubeMP3/internal/store"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Inspect or reset the bundled yt-dlp and ffmpeg binaries",
}

var depsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Provision both tools and print their versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newApp(config.GetConfig())
		if err != nil {
			return err
		}
		defer engine.close()
		report := engine.provisioner.Check(cmd.Context())
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, s := range []models.DependencyStatus{report.Fetcher, report.Converter} {
			if s.OK() {
				fmt.Fprintf(tw, "%s\tok\t%s\t%s\n", s.Tool, s.Version, s.Path)
			} else {
				fmt.Fprintf(tw, "%s\tmissing\t\t%s\n", s.Tool, s.Error)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if !report.Ready() {
			return errors.New("dependencies are not ready")
		}
		return nil
	},
}

var depsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete extracted binaries so they are re-extracted on next use",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newApp(config.GetConfig())
		if err != nil {
			return err
		}
		defer engine.close()
		removed, err := engine.provisioner.ClearCache()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached binaries from %s\n", removed, engine.provisioner.Locator().CacheDir())
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached video and playlist metadata",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop cached metadata so the next download queries the fetcher again",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newApp(config.GetConfig())
		if err != nil {
			return err
		}
		defer engine.close()
		total := 0
		for _, c := range engine.caches {
			n, err := c.Purge(cmd.Context())
			if err != nil {
				return err
			}
			total += n
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached metadata entries (%s)\n", total, engine.cfg.Cache.Provider)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or clear completed downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := store.NewHistory(config.GetConfig().Paths.ConfigDir).List()
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%dk\t%s\t%s\n", e.Timestamp, e.BitrateKbps, e.Title, e.OutputPath)
		}
		return tw.Flush()
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every recorded download",
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.NewHistory(config.GetConfig().Paths.ConfigDir).Clear()
	},
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show saved preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := store.NewPreferences(config.GetConfig().Paths.ConfigDir).Get()
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), prefs)
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <output_dir|bitrate|last_url> <value>",
	Short: "Save one preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		update, err := preferenceUpdate(args[0], args[1])
		if err != nil {
			return err
		}
		saved, err := store.NewPreferences(config.GetConfig().Paths.ConfigDir).Save(update)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), saved)
	},
}

// preferenceUpdate builds a single-field update, validating bitrates like a download would
func preferenceUpdate(key, value string) (models.Preferences, error) {
	switch key {
	case "output_dir":
		return models.Preferences{OutputDir: &value}, nil
	case "last_url":
		return models.Preferences{LastURL: &value}, nil
	case "bitrate":
		kbps, err := strconv.Atoi(value)
		if err != nil {
			return models.Preferences{}, fmt.Errorf("bitrate must be a number: %w", err)
		}
		if kbps < services.MinBitrate || kbps > services.MaxBitrate {
			return models.Preferences{}, fmt.Errorf("bitrate must be between %d and %d kbps", services.MinBitrate, services.MaxBitrate)
		}
		return models.Preferences{BitrateKbps: &kbps}, nil
	default:
		return models.Preferences{}, fmt.Errorf("unknown preference %q", key)
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML (secrets omitted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(config.GetConfig()); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	depsCheckCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "print entries as JSON")

	depsCmd.AddCommand(depsCheckCmd, depsClearCmd)
	historyCmd.AddCommand(historyClearCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	configCmd.AddCommand(configShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(depsCmd, cacheCmd, historyCmd, prefsCmd, configCmd)
}
