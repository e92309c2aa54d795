package main

import (
	"strings"

	"github.com/harunnryd/kotoba/cmd/kotoba/runtime"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask a single question and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")
		return executeWithRuntime(cmd, func(r *runtime.RuntimeComponents) error {
			repl := runtime.NewREPL(r, strings.NewReader(""))
			if err := r.StartSession(repl.OnUpdate); err != nil {
				return err
			}

			signals := NewSignalHandler(r.Ctx, cmd.ErrOrStderr(), nil)
			signals.Start()
			defer signals.Stop()

			return repl.Ask(signals.Context(), prompt)
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().String("chat.system_template", "", "system message template, {{.Context}} is the context string")
	askCmd.Flags().String("context.file", "", "YAML context file")
}
