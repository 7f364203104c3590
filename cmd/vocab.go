package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insitu-cli/internal/utils"
	"github.com/KaramelBytes/insitu-cli/internal/variables"
)

var (
	vocabPrimary  bool
	vocabMetadata bool
	vocabOutput   string
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Inspect the measurement vocabularies",
}

var vocabListCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List the built-in campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, n := range variables.Campaigns() {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var vocabDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the merged vocabulary of the configured campaign as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := currentConfig()
		if err != nil {
			return err
		}
		vocab, err := conf.Vocabularies()
		if err != nil {
			return err
		}
		v := vocab.Primary
		if vocabMetadata {
			v = vocab.Metadata
		}
		b, err := v.ToYAML()
		if err != nil {
			return err
		}
		if vocabOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), string(b))
			return nil
		}
		if err := utils.SafeWriteFile(vocabOutput, b); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d entries to %s\n", v.Len(), vocabOutput)
		return nil
	},
}

func init() {
	vocabDumpCmd.Flags().BoolVar(&vocabPrimary, "primary", true, "dump the column vocabulary")
	vocabDumpCmd.Flags().BoolVar(&vocabMetadata, "metadata", false, "dump the header vocabulary instead of the column vocabulary")
	vocabDumpCmd.Flags().StringVarP(&vocabOutput, "output", "o", "", "write to file instead of stdout")
	vocabDumpCmd.MarkFlagsMutuallyExclusive("primary", "metadata")
	vocabCmd.AddCommand(vocabDumpCmd)
	vocabCmd.AddCommand(vocabListCmd)
	rootCmd.AddCommand(vocabCmd)
}
