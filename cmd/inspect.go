package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insitu-cli/internal/collection"
	"github.com/KaramelBytes/insitu-cli/internal/parser"
	"github.com/KaramelBytes/insitu-cli/internal/utils"
)

var (
	flagID               string
	flagCampaignName     string
	flagTimezone         string
	flagAllowMapFailures bool
	flagAllowSplitLines  bool
	flagUnits            map[string]string
	flagExtraHeader      map[string]string
)

// addParseFlags registers the per-file overrides shared by inspect and batch.
func addParseFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagID, "id", "", "override the pit id found in the header")
	c.Flags().StringVar(&flagCampaignName, "campaign-name", "", "override the campaign (site) name")
	c.Flags().StringVar(&flagTimezone, "timezone", "", "timezone of local header timestamps (overrides config)")
	c.Flags().BoolVar(&flagAllowMapFailures, "allow-map-failures", false, "keep unknown columns and header keys instead of failing")
	c.Flags().BoolVar(&flagAllowSplitLines, "allow-split-lines", false, "header rows may wrap onto lines without the indicator")
	c.Flags().StringToStringVar(&flagUnits, "units", nil, "unit overrides as code=unit")
	c.Flags().StringToStringVar(&flagExtraHeader, "header", nil, "extra header entries as key=value")
}

// parseOptions builds parse options from config and command flags.
func parseOptions(c *cobra.Command) (parser.Options, error) {
	loaded, err := currentConfig()
	if err != nil {
		return parser.Options{}, err
	}
	conf := *loaded
	f := c.Flags()
	if f.Changed("allow-map-failures") {
		conf.AllowMapFailures = flagAllowMapFailures
	}
	opts, err := conf.ParserOptions(log)
	if err != nil {
		return parser.Options{}, err
	}
	if f.Changed("allow-split-lines") {
		opts.AllowSplitLines = flagAllowSplitLines
	}
	if flagTimezone != "" {
		opts.Timezone = flagTimezone
	}
	opts.ID = flagID
	opts.CampaignName = flagCampaignName
	opts.Units = flagUnits
	opts.ExtraHeader = flagExtraHeader
	return opts, nil
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Parse one file and print its metadata and profile summaries as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := parseOptions(cmd)
		if err != nil {
			return err
		}
		c, err := collection.FromCSV(args[0], opts)
		if err != nil {
			return err
		}
		b, err := utils.PrettyJSON(c.Report())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	addParseFlags(inspectCmd)
	rootCmd.AddCommand(inspectCmd)
}
