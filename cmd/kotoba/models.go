package main

import (
	"fmt"

	"github.com/harunnryd/kotoba/cmd/kotoba/runtime"

	"github.com/spf13/cobra"
)

type modelTyper interface {
	ProviderType(model string) (string, bool)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithRuntime(cmd, func(r *runtime.RuntimeComponents) error {
			out := cmd.OutOrStdout()
			models := r.Router.ListModels()
			if len(models) == 0 {
				fmt.Fprintln(out, "No models configured.")
				return nil
			}

			typer, _ := r.Router.(modelTyper)
			for _, name := range models {
				marker := " "
				if name == r.Config.Models.Default {
					marker = "*"
				}
				provider := ""
				if typer != nil {
					provider, _ = typer.ProviderType(name)
				}
				fmt.Fprintf(out, "%s %-32s %s\n", marker, name, provider)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
