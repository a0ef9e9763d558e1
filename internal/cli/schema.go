package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/schema"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and validate question schemas",
	Long: `Question schemas are YAML files, one per notice type, listing the questions
in order with the weight of every possible answer.

Built-in schemas are used unless schemas.dir points to a directory of your own.`,
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notice types and their questionnaires",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NOTICE TYPE\tQUESTIONS\tSCORE RANGE\tTITLE")
		for _, t := range reg.NoticeTypes() {
			sc, err := reg.SchemaFor(t)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\t%d..%d\t%s\n", t, len(sc.Questions), sc.MinSum, sc.MaxSum, sc.Title)
		}
		return w.Flush()
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <notice-type>",
	Short: "Print the questionnaire for a notice type as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}

		sc, err := reg.SchemaFor(model.ParseNoticeType(args[0]))
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(sc); err != nil {
			return err
		}
		return enc.Close()
	},
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate <dir>",
	Short: "Validate a directory of schema files",
	Long: `Validate loads every *.yaml file in a directory and checks it the way the
calculator does at startup: unique question ids, complete answer domains,
weights within bounds, and negative weights on missing-evidence answers.

Example:
  casestrength schema validate ./my-schemas`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := schema.LoadDir(args[0])
		if err != nil {
			return err
		}
		types := reg.NoticeTypes()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %d schemas valid: %v\n", len(types), types)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaListCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaValidateCmd)
}
