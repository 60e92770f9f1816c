package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ctrl-q/ctrlq/internal/config"
	"github.com/ctrl-q/ctrlq/internal/ctxlog"
	"github.com/ctrl-q/ctrlq/internal/qrs"
	"github.com/ctrl-q/ctrlq/internal/transport"
)

// runtime bundles the connections every subcommand needs, built once in
// the root command's PersistentPreRunE and threaded through cmd.Context().
type runtime struct {
	config  *config.Model
	session *transport.Session
	repo    *qrs.Client
}

type runtimeKey struct{}

func runtimeFromContext(ctx context.Context) *runtime {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok {
		panic("ctrlq: runtime missing from context")
	}
	return rt
}

// NewRootCommand builds the ctrlq root command and every subcommand.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ctrlq",
		Short:         "Ctrl-Q — operations tooling for QSEoW's task graph",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			m, err := config.Load(cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "configuration error", err)
			}

			logger := newLogger(m.LogLevel, m.LogFormat, os.Stderr)
			ctx := ctxlog.WithLogger(cmd.Context(), logger)

			session, err := transport.NewSession(m.TransportConfig())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build transport session", err)
			}

			ctx = context.WithValue(ctx, runtimeKey{}, &runtime{
				config:  m,
				session: session,
				repo:    qrs.New(session),
			})
			cmd.SetContext(ctx)
			return nil
		},
	}

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newTaskGetCommand())
	cmd.AddCommand(newTaskImportCommand())
	cmd.AddCommand(newTaskCustomPropertySetCommand())
	cmd.AddCommand(newTaskVisualizeCommand())

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
