package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ctrl-q/ctrlq/internal/ctxlog"
	"github.com/ctrl-q/ctrlq/internal/vizserver"
)

func newTaskVisualizeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "task-visualize",
		Short: "Serve the task graph's tree/table projection over HTTP as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := runtimeFromContext(ctx)
			logger := ctxlog.FromContext(ctx)

			graph, err := loadGraph(ctx, rt.repo)
			if err != nil {
				return WrapExitError(ExitFailure, "load task graph", err)
			}

			srv := vizserver.New(ctx, port, graph)
			srv.Start()
			logger.Info("serving task graph; press Ctrl+C to stop", "port", port)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			return srv.Close()
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port to serve the visualization on")

	return cmd
}
