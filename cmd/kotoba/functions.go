package main

import (
	"fmt"

	"github.com/harunnryd/kotoba/cmd/kotoba/runtime"

	"github.com/harunnryd/kotoba/internal/formatter"

	"github.com/spf13/cobra"
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the functions advertised to the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		f, err := formatter.Parse(output)
		if err != nil {
			return err
		}

		return executeWithRuntime(cmd, func(r *runtime.RuntimeComponents) error {
			text, err := f.FormatFunctions(r.Functions())
			if err != nil {
				return fmt.Errorf("failed to format functions: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(functionsCmd)
	functionsCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
	functionsCmd.Flags().String("context.file", "", "YAML context file")
}
