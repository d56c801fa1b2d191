package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/bookmind/internal/config"
)

// output is where command results are rendered.
var output io.Writer = os.Stdout

// CLI represents the complete command structure for the bookmind application
type CLI struct {
	// Global flags
	Verbose bool   `short:"v" help:"Enable debug logging"`
	DataDir string `help:"Directory holding caches, the index and JSON stores"`
	Workers int    `help:"Number of books enriched in parallel"`

	Recommend RecommendCmd `cmd:"" help:"Get book recommendations for a free-text request"`
	Explore   ExploreCmd   `cmd:"" help:"Explore trending books in a genre with their analyses"`
	Analyze   AnalyzeCmd   `cmd:"" help:"Analyze a single book and find similar ones"`
	Trending  TrendingCmd  `cmd:"" help:"Show trending books"`
	List      ListCmd      `cmd:"" help:"Manage reading lists"`
	History   HistoryCmd   `cmd:"" help:"Show or export past recommendations"`
	Cache     CacheCmd     `cmd:"" help:"Manage the analysis and embedding cache"`
	Index     IndexCmd     `cmd:"" help:"Query the similarity index"`
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("bookmind"),
		kong.Description("Book recommendations from language models, trending lists and semantic search."),
		kong.UsageOnError(),
	)

	initLogging(cli.Verbose)
	initConfig()
	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	config.InitConfig()

	// Enable environment variable support
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("Config file not found, writing default config file")
			if err := viper.SafeWriteConfig(); err != nil {
				slog.Warn("Error writing config file", "error", err)
			}
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}
}

func updateGlobalConfig(cli *CLI) {
	if cli.DataDir != "" {
		viper.Set("data.dir", cli.DataDir)
	}
	if cli.Workers > 0 {
		viper.Set("workers", cli.Workers)
	}
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
