package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/extract"
	"github.com/zakerytclarke/teapot/internal/handler"
	"github.com/zakerytclarke/teapot/internal/tui"
	"github.com/zakerytclarke/teapot/internal/watch"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	rootCmd := &cobra.Command{
		Use:           "teapot",
		Short:         "Retrieval-augmented answers over local documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ./teapot.yaml or ~/.config/teapot/config.yaml)")

	// setup loads the config, starts the logger and builds the engine.
	setup := func(ctx context.Context, paths []string) (*app, error) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		initLogger(cfg.Log)
		return newApp(ctx, cfg, paths)
	}

	rootCmd.AddCommand(
		chatCmd(setup),
		queryCmd(setup),
		extractCmd(setup),
		retrieveCmd(setup),
		serveCmd(setup),
	)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

type setupFunc func(ctx context.Context, paths []string) (*app, error)

func chatCmd(setup setupFunc) *cobra.Command {
	var watchFiles bool
	cmd := &cobra.Command{
		Use:   "chat [paths...]",
		Short: "Chat with the documents in an interactive terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			a, err := setup(ctx, args)
			if err != nil {
				return err
			}
			defer a.Close()

			p := tea.NewProgram(tui.New(a.engine, a.summary()), tea.WithAltScreen())
			if watchFiles && len(args) > 0 {
				r, err := watch.New(args, watch.DefaultDebounce, func(ctx context.Context) error {
					if err := a.reload(ctx); err != nil {
						return err
					}
					p.Send(tui.PoolReloadedMsg{Summary: a.summary()})
					return nil
				})
				if err != nil {
					return err
				}
				defer r.Close()
				go func() {
					_ = r.Run(ctx)
				}()
			}
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&watchFiles, "watch", false, "rebuild the document pool when input files change")
	return cmd
}

func queryCmd(setup setupFunc) *cobra.Command {
	var supplied string
	var showSources bool
	cmd := &cobra.Command{
		Use:   "query <question> [paths...]",
		Short: "Answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), args[1:])
			if err != nil {
				return err
			}
			defer a.Close()
			ans, err := a.engine.Query(cmd.Context(), args[0], supplied)
			if err != nil {
				return err
			}
			if showSources {
				return printJSON(ans)
			}
			fmt.Println(ans.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&supplied, "context", "", "extra context placed before retrieved documents")
	cmd.Flags().BoolVar(&showSources, "json", false, "print the full answer with sources and tool calls as JSON")
	return cmd
}

func extractCmd(setup setupFunc) *cobra.Command {
	var schemaPath, supplied string
	cmd := &cobra.Command{
		Use:   "extract <query> [paths...]",
		Short: "Extract a typed record described by a YAML schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := extract.LoadSchema(schemaPath)
			if err != nil {
				return err
			}
			a, err := setup(cmd.Context(), args[1:])
			if err != nil {
				return err
			}
			defer a.Close()
			rec, err := a.engine.Extract(cmd.Context(), schema, args[0], supplied)
			var verr *extract.ValidationError
			if errors.As(err, &verr) {
				_ = printJSON(verr)
			}
			if err != nil {
				return err
			}
			return printJSON(rec.Values())
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the schema YAML file")
	cmd.Flags().StringVar(&supplied, "context", "", "context to extract from instead of retrieved documents")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func retrieveCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve <query> [paths...]",
		Short: "Print the documents retrieved for a query with their scores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), args[1:])
			if err != nil {
				return err
			}
			defer a.Close()
			found, err := a.engine.Retrieve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(found)
		},
	}
}

func serveCmd(setup setupFunc) *cobra.Command {
	var addr string
	var watchFiles bool
	cmd := &cobra.Command{
		Use:   "serve [paths...]",
		Short: "Serve the query API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, err := setup(ctx, args)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			if watchFiles && len(args) > 0 {
				r, err := watch.New(args, watch.DefaultDebounce, a.reload)
				if err != nil {
					return err
				}
				defer r.Close()
				go func() {
					_ = r.Run(ctx)
				}()
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           handler.NewRouter(handler.NewQueryHandler(a.engine)),
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger := logutil.GetLogger(ctx)
			logger.Info("http server listening", zap.String("addr", addr), zap.Int("documents", a.engine.Pool().Len()))
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			logger.Info("server stopping...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&watchFiles, "watch", false, "rebuild the document pool when input files change")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
