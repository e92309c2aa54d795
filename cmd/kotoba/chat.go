package main

import (
	"os"

	"github.com/harunnryd/kotoba/cmd/kotoba/runtime"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session composed from the configured context.
Ctrl-C stops a reply in progress; pressing it again exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithRuntime(cmd, func(r *runtime.RuntimeComponents) error {
			repl := runtime.NewREPL(r, os.Stdin)
			if err := r.StartSession(repl.OnUpdate); err != nil {
				return err
			}

			signals := NewSignalHandler(r.Ctx, cmd.ErrOrStderr(), repl.Interrupt)
			signals.Start()
			defer signals.Stop()

			return repl.Start(signals.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("chat.session_id", "", "session id (generated when empty)")
	chatCmd.Flags().String("chat.system_template", "", "system message template, {{.Context}} is the context string")
	chatCmd.Flags().String("context.file", "", "YAML context file")
}
