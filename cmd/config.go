package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/insitu-cli/internal/config"
	"github.com/KaramelBytes/insitu-cli/internal/variables"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "campaign: %s\n", c.Campaign)
		fmt.Fprintf(out, "timezone: %s\n", c.Timezone)
		fmt.Fprintf(out, "header_sep: %q\n", c.HeaderSep)
		fmt.Fprintf(out, "header_indicator: %q\n", c.HeaderIndicator)
		fmt.Fprintf(out, "allow_split_lines: %t\n", c.AllowSplitLines)
		fmt.Fprintf(out, "allow_map_failures: %t\n", c.AllowMapFailures)
		if len(c.MetadataVocabularies) > 0 {
			fmt.Fprintf(out, "metadata_vocabularies: %s\n", strings.Join(c.MetadataVocabularies, ", "))
		}
		if len(c.PrimaryVocabularies) > 0 {
			fmt.Fprintf(out, "primary_vocabularies: %s\n", strings.Join(c.PrimaryVocabularies, ", "))
		}
		fmt.Fprintf(out, "workers: %d\n", c.Workers)
		fmt.Fprintf(out, "output_dir: %s\n", c.OutputDir)
		return nil
	},
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := currentConfig()
		if err != nil {
			return err
		}
		switch key {
		case "campaign":
			if _, err := variables.Lookup(val); err != nil {
				return err
			}
			c.Campaign = val
		case "timezone":
			if _, err := time.LoadLocation(val); err != nil {
				return fmt.Errorf("invalid timezone: %s", val)
			}
			c.Timezone = val
		case "header_sep":
			if val == "" {
				return fmt.Errorf("header_sep cannot be empty")
			}
			c.HeaderSep = val
		case "header_indicator":
			c.HeaderIndicator = val
		case "allow_split_lines", "allow_map_failures":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for %s: %v", key, val)
			}
			if key == "allow_split_lines" {
				c.AllowSplitLines = b
			} else {
				c.AllowMapFailures = b
			}
		case "metadata_vocabularies":
			c.MetadataVocabularies = splitList(val)
		case "primary_vocabularies":
			c.PrimaryVocabularies = splitList(val)
		case "workers":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for workers: %v", val)
			}
			c.Workers = i
		case "output_dir":
			c.OutputDir = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
