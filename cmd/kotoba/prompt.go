package main

import (
	"fmt"

	"github.com/harunnryd/kotoba/cmd/kotoba/runtime"

	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the composed system message",
	Long:  `Render the system message from the configured context and template without contacting a model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithRuntime(cmd, func(r *runtime.RuntimeComponents) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), r.Composer.SystemMessage().Content)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().String("chat.system_template", "", "system message template, {{.Context}} is the context string")
	promptCmd.Flags().String("context.file", "", "YAML context file")
}
