package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/fyrsmithlabs/ragcore/internal/http"
	"github.com/fyrsmithlabs/ragcore/internal/rag"
)

// withApp builds the app, runs fn and closes the app.
func withApp(cmd *cobra.Command, flags *rootFlags, ov *overrides, fn func(context.Context, *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, flags, ov)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.Background()); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

func newServeCmd(flags *rootFlags, ov *overrides) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, ov, func(ctx context.Context, a *app) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if port == 0 {
					port = a.cfg.Server.HTTPPort
				}
				srv, err := httpapi.NewServer(httpapi.Deps{
					Embedder:  a.embedder,
					Store:     a.store,
					RAG:       a.rag,
					Advanced:  a.advanced,
					Sanitizer: a.sanitizer,
					Logger:    a.logger,
				}, &httpapi.Config{
					Host:            host,
					Port:            port,
					ShutdownTimeout: a.cfg.Server.ShutdownTimeout.Duration(),
				})
				if err != nil {
					return err
				}

				a.logger.Info(ctx, "serving",
					zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", host, port)),
					zap.String("metrics_endpoint", "/metrics"))
				return srv.Start(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "listen host")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}

func newIndexCmd(flags *rootFlags, ov *overrides) *cobra.Command {
	var (
		entityType string
		entityID   string
		meta       map[string]string
	)
	cmd := &cobra.Command{
		Use:   "index <text|->",
		Short: "Embed text and store it under an entity type and id",
		Example: `  ragcore index --type doc --id readme "ragcore answers questions"
  cat notes.txt | ragcore index --type note --id 42 --meta author=sam -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, ov, func(ctx context.Context, a *app) error {
				if err := a.rag.Index(ctx, entityType, entityID, text, toMetadata(meta)); err != nil {
					return err
				}
				return writeJSON(cmd, map[string]string{"indexed": entityType + ":" + entityID})
			})
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "", "entity type (required)")
	cmd.Flags().StringVar(&entityID, "id", "", "entity id (required)")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "metadata key=value pairs")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// queryFlags are shared by search and ask.
type queryFlags struct {
	entityType string
	limit      int
	threshold  float64
	filters    map[string]string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.entityType, "type", "", "restrict to one entity type")
	cmd.Flags().IntVar(&q.limit, "limit", 0, "maximum documents (default from config)")
	cmd.Flags().Float64Var(&q.threshold, "threshold", -1, "minimum similarity (default from config)")
	cmd.Flags().StringToStringVar(&q.filters, "filter", nil, "metadata filters key=value")
}

func (q *queryFlags) request(query string) rag.Request {
	req := rag.Request{
		Query:      query,
		EntityType: q.entityType,
		Limit:      q.limit,
		Filters:    toMetadata(q.filters),
	}
	if q.threshold >= 0 {
		t := q.threshold
		req.Threshold = &t
	}
	return req
}

func newSearchCmd(flags *rootFlags, ov *overrides) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "search <query|->",
		Short: "Find the stored documents most similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readText(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, ov, func(ctx context.Context, a *app) error {
				req := q.request(query)
				resp, err := a.rag.Search(ctx, &req)
				if err != nil {
					return err
				}
				return writeJSON(cmd, resp)
			})
		},
	}
	q.register(cmd)
	return cmd
}

func newAskCmd(flags *rootFlags, ov *overrides) *cobra.Command {
	var (
		q          queryFlags
		advanced   bool
		strategy   string
		level      string
		expansions int
		maxDocs    int
	)
	cmd := &cobra.Command{
		Use:   "ask <question|->",
		Short: "Answer a question from the most relevant stored content",
		Example: `  ragcore ask "how are vectors compared?"
  ragcore ask --advanced --strategy diversity --level high "summarize the notes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readText(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, ov, func(ctx context.Context, a *app) error {
				req := q.request(query)
				if !advanced {
					resp, err := a.rag.Retrieve(ctx, &req)
					if err != nil {
						return err
					}
					return writeJSON(cmd, resp)
				}
				resp, err := a.advanced.RetrieveAdvanced(ctx, &rag.AdvancedRequest{
					Request:                  req,
					ExpansionLevel:           expansions,
					RerankingStrategy:        strategy,
					ContextOptimizationLevel: level,
					MaxDocuments:             maxDocs,
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd, resp)
			})
		},
	}
	q.register(cmd)
	cmd.Flags().BoolVar(&advanced, "advanced", false, "use query expansion, re-ranking and context optimization")
	cmd.Flags().StringVar(&strategy, "strategy", "score", "re-ranking strategy: score, semantic, hybrid, diversity, lexical")
	cmd.Flags().StringVar(&level, "level", "medium", "context optimization level: low, medium, high")
	cmd.Flags().IntVar(&expansions, "expansions", 0, "query reformulations (default from config)")
	cmd.Flags().IntVar(&maxDocs, "max-docs", 0, "cap on documents counted as used (default from config)")
	return cmd
}

func newStatusCmd(flags *rootFlags, ov *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print embedding provider and vector store status as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, ov, func(ctx context.Context, a *app) error {
				return writeJSON(cmd, map[string]interface{}{
					"version":     version,
					"embedding":   a.embedder.Status(),
					"vectorStore": a.store.Stats(),
					"healthy":     a.embedder.IsAvailable() && a.store.Healthy(ctx),
					"telemetry":   a.telemetry.Health(),
					"statistics":  a.rag.Statistics(),
				})
			})
		},
	}
}
