package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/suvichaar/storygen/internal/config"
	"github.com/suvichaar/storygen/internal/database"
	"github.com/suvichaar/storygen/internal/pipeline"
	"github.com/suvichaar/storygen/internal/server"
	"github.com/suvichaar/storygen/internal/storage"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "storygen",
	Short:   "Generate and publish web stories",
	Long:    "Storygen turns a topic or a source image into a published quiz or notes-summary web story.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(storiesCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("storygen", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/storygen/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure API keys, the storage bucket, and defaults.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Index: %s\n\n", db.Path())
		fmt.Println("Published stories:")
		fmt.Printf("  Total: %d\n", stats.TotalStories)
		fmt.Printf("  Quizzes: %d\n", stats.Quizzes)
		fmt.Printf("  Summaries: %d\n", stats.Summaries)
		fmt.Println("\nStorage:")
		fmt.Printf("  Bucket: %s\n", cfg.Storage.Bucket)
		fmt.Printf("  Prefix: %s\n", cfg.Storage.Prefix)
		fmt.Printf("  CDN: %s\n", cfg.Storage.CDNDomain)
		return nil
	},
}

// --- generate command ---

var (
	genTopic     string
	genImage     string
	genImageURLs []string
	genKeywords  []string
	genTemplate  string
	genQuestions int
	genImages    string
	genSummary   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and publish one story",
	Long: `Generate a story from a topic or a source image, render it into the
given template, publish it to object storage, and record it locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		template, err := os.ReadFile(genTemplate)
		if err != nil {
			return fmt.Errorf("reading template: %w", err)
		}

		in := pipeline.Input{
			Kind:         pipeline.KindQuiz,
			Topic:        genTopic,
			ImageURLs:    genImageURLs,
			Keywords:     genKeywords,
			TemplateHTML: string(template),
			Questions:    genQuestions,
			Strategy:     genImages,
		}
		if genSummary {
			in.Kind = pipeline.KindSummary
		}
		if genImage != "" {
			in.Image, err = os.ReadFile(genImage)
			if err != nil {
				return fmt.Errorf("reading source image: %w", err)
			}
		}
		if in.Kind == pipeline.KindQuiz && in.Topic == "" && len(in.Image) == 0 && len(in.Keywords) == 0 {
			return fmt.Errorf("provide --topic, --image, or --keywords")
		}
		if in.Kind == pipeline.KindSummary && len(in.ImageURLs) == 0 && len(in.Image) == 0 {
			return fmt.Errorf("summaries need --image or at least one --image-url")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		store, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CDNDomain, cfg.Storage.CredentialsFile)
		if err != nil {
			return fmt.Errorf("connecting to storage: %w", err)
		}
		defer store.Close()

		result := pipeline.New(cfg, db, store).Run(ctx, in)
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		if result.Failed() {
			return fmt.Errorf("generation failed")
		}

		fmt.Printf("\nStory published: %s\n", result.Artifact.HTMLURL)
		if result.Artifact.JSONURL != "" {
			fmt.Printf("Sidecar: %s\n", result.Artifact.JSONURL)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genTopic, "topic", "", "Quiz topic")
	generateCmd.Flags().StringVar(&genImage, "image", "", "Source image file for quiz extraction")
	generateCmd.Flags().StringArrayVar(&genImageURLs, "image-url", nil, "Hosted source image URL for summaries (repeatable)")
	generateCmd.Flags().StringSliceVar(&genKeywords, "keywords", nil, "Per-slide image search keywords; without --topic or --image, one question is generated per keyword")
	generateCmd.Flags().StringVar(&genTemplate, "template", "", "Template HTML file (required)")
	generateCmd.Flags().IntVar(&genQuestions, "questions", 0, "Number of questions (4 or 5, default from config)")
	generateCmd.Flags().StringVar(&genImages, "images", "", "Image strategy: search or generate")
	generateCmd.Flags().BoolVar(&genSummary, "summary", false, "Generate a notes summary instead of a quiz")
	generateCmd.MarkFlagRequired("template")
}

// --- stories command ---

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Inspect the local story index",
}

var storiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stories, err := db.GetAllStories()
		if err != nil {
			return err
		}

		if len(stories) == 0 {
			fmt.Println("No stories published yet. Generate one with: storygen generate")
			return nil
		}

		fmt.Println("Published stories:")
		fmt.Println()
		for _, s := range stories {
			created := ""
			if s.CreatedAt != nil {
				created = *s.CreatedAt
			}
			fmt.Printf("  [%s] %-7s %s (%d slides) %s\n", s.Slug, s.Kind, s.Title, s.SlideCount, created)
			fmt.Printf("        %s\n", s.HTMLURL)
		}
		return nil
	},
}

func init() {
	storiesCmd.AddCommand(storiesListCmd)
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		store, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CDNDomain, cfg.Storage.CredentialsFile)
		if err != nil {
			return fmt.Errorf("connecting to storage: %w", err)
		}
		defer store.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, pipeline.New(cfg, db, store), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "storygen.db")
	return database.Open(dbPath)
}
