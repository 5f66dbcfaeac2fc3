/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pushkindt/pushkind-crawlers/internal/config"
	"github.com/pushkindt/pushkind-crawlers/internal/dispatcher"
	"github.com/pushkindt/pushkind-crawlers/internal/embedding"
	"github.com/pushkindt/pushkind-crawlers/internal/logger"
	"github.com/pushkindt/pushkind-crawlers/internal/matching"
	"github.com/pushkindt/pushkind-crawlers/internal/pipeline"
	"github.com/pushkindt/pushkind-crawlers/internal/repository"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands:
// load config, connect to storage, run pending migrations, and block on the
// dispatcher's receive loop until interrupted.
var rootCmd = &cobra.Command{
	Use:   "pushkind-crawlers",
	Short: "Back-office worker for crawling web stores and matching products to benchmarks and categories.",
	Long: `pushkind-crawlers consumes Crawl, Benchmark and Category-Match envelopes
from a message queue and runs them against a relational store: harvesting
products from configured web stores, embedding them, and ranking them by
cosine similarity against benchmarks and category directories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pushkind-crawlers.yaml)")
}

func run(ctx context.Context) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repo, err := repository.NewPostgres(cfg.Database.ConnectionString)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()

	if err := repository.NewMigrator(repo).Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	embedder := embedding.NewGeminiProvider(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)

	crawlPipeline := pipeline.New(repo, log, cfg.Crawl.FetchConcurrency)
	benchMatcher := matching.NewBenchmarkMatcher(repo, embedder, log)
	categoryMatcher := matching.NewCategoryMatcher(repo, embedder, log)

	d := dispatcher.New(cfg.Queue.Endpoint, repo, crawlPipeline, benchMatcher, categoryMatcher, log)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.Run(runCtx)
}
