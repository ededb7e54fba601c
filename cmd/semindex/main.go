package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/opennote/semindex/internal/chunker"
	"github.com/opennote/semindex/internal/config"
	"github.com/opennote/semindex/internal/embedclient"
	"github.com/opennote/semindex/internal/handler"
	"github.com/opennote/semindex/internal/indexengine"
	"github.com/opennote/semindex/internal/job"
	"github.com/opennote/semindex/internal/mcpserver"
	"github.com/opennote/semindex/internal/middleware"
	"github.com/opennote/semindex/internal/progress"
	"github.com/opennote/semindex/internal/retrieval"
	"github.com/opennote/semindex/internal/scanner"
	"github.com/opennote/semindex/internal/schedule"
	"github.com/opennote/semindex/internal/vectorstore"
	"github.com/opennote/semindex/internal/workspace"
)

// deps bundles everything built from config, shared across subcommands,
// mirroring the teacher's cmd/mnote/main.go wiring shape.
type deps struct {
	cfg         *config.Config
	workspaceID string
	root        string
	engine      *indexengine.Engine
	retriever   *retrieval.Engine
	store       *vectorstore.Store
	reporter    *progress.Reporter
}

func build() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogConfig.File, cfg.LogConfig.Level, int(cfg.LogConfig.FileCount), int(cfg.LogConfig.FileSize), int(cfg.LogConfig.KeepDays), cfg.LogConfig.Console)

	root, err := filepath.Abs(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace path: %w", err)
	}
	workspaceID := workspace.ID(root)

	db, err := vectorstore.Open(vectorstore.DatabaseConfig{DSN: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := vectorstore.ApplyMigrations(db); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	store := vectorstore.New(db)

	embedder, err := embedclient.FromConfig(cfg.Provider, cfg.Model, cfg.MaxSessionResults, 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init embedding client: %w", err)
	}

	sc := scanner.New(root, cfg.IncludePatterns, cfg.ExcludePatterns)
	ck := chunker.New(chunker.Config{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap, ExcludeLangs: cfg.ExcludeLanguages})

	reporter, err := progress.New(workspaceID)
	if err != nil {
		return nil, fmt.Errorf("init progress reporter: %w", err)
	}

	engine := indexengine.New(workspaceID, cfg.Model, store, sc, ck, embedder, reporter)
	retriever := retrieval.New(root, store, embedder, engine.Scope())

	return &deps{cfg: cfg, workspaceID: workspaceID, root: root, engine: engine, retriever: retriever, store: store, reporter: reporter}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "semindex",
		Short: "semantic workspace indexer",
	}

	var reindexAll bool
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "run one indexing pass over the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			defer d.reporter.Close()
			d.engine.ResetCancel()
			return d.engine.Update(cmd.Context(), indexengine.Options{ReindexAll: reindexAll}, nil)
		},
	}
	indexCmd.Flags().BoolVar(&reindexAll, "reindex-all", false, "clear and fully rebuild the index")
	rootCmd.AddCommand(indexCmd)

	var searchLimit int
	var minSimilarity float64
	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "search the indexed workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			defer d.reporter.Close()
			results, err := d.retriever.Search(cmd.Context(), args[0], minSimilarity, searchLimit, retrieval.Scope{})
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%.3f  %s:%d-%d\n", r.Similarity, r.Path, r.StartLine, r.EndLine)
			}
			return nil
		},
	}
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results")
	searchCmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "minimum cosine similarity")
	rootCmd.AddCommand(searchCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP console and stdio control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			defer d.reporter.Close()
			return runServer(d)
		},
	}
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(d *deps) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewReindexJob(d.engine), "*/15 * * * *"); err != nil {
		return fmt.Errorf("schedule reindex job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	consoleHandler := handler.NewConsoleHandler(d.engine, d.store, d.reporter, d.workspaceID, d.cfg.Model)
	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", d.cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, handler.RouterDeps{Console: consoleHandler})
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	go func() {
		if err := engine.Run(); err != nil {
			logutil.GetLogger(ctx).Error("http server error", zap.Error(err))
		}
	}()
	logutil.GetLogger(ctx).Info("http console listening", zap.Int("port", d.cfg.Port))

	mcpSrv := mcpserver.New(d.engine, d.store, d.retriever)
	go func() {
		if err := mcpSrv.Serve(ctx); err != nil {
			logutil.GetLogger(ctx).Error("mcp server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("shutting down")
	return nil
}
