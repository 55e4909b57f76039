package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"project-advisor/internal/config"
	"project-advisor/internal/helpers"
	"project-advisor/internal/models"
	"project-advisor/internal/repositories"
	"project-advisor/internal/server"
	"project-advisor/internal/services"

	"github.com/spf13/cobra"
)

var (
	configFile string
	saveOutput bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "project-advisor",
		Short: "Project Advisor - AI-powered project analysis, chat and task assignment",
		Long: `Project Advisor analyzes project documents with a generative AI model,
stores structured and raw insights, answers questions about projects and
uploaded documents, and assigns tasks to confirmed team members.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)

	var analyzeCmd = &cobra.Command{
		Use:   "analyze <project.json>",
		Short: "Analyze a project document and store the results",
		Long:  "Run the two-pass analysis on a project JSON file (which must carry an _id) and print the structured result",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().BoolVarP(&saveOutput, "save", "s", false, "Also write the result to the output directory")
	rootCmd.AddCommand(analyzeCmd)

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	rootCmd.AddCommand(initCmd)

	if err := rootCmd.Execute(); err != nil {
		helpers.PrintError("Error: %v", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	helpers.PrintTitle("Starting Project Advisor")
	helpers.PrintInfo("Provider: %s (%s)", cfg.AI.Provider, cfg.AI.Model)
	helpers.PrintInfo("Store: %s", cfg.Store.Driver)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	generator, err := services.NewGenerator(&cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	return server.New(&cfg.Server, store, generator).Run(ctx)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	inputFile := args[0]

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	helpers.PrintTitle("Analyzing Project")
	helpers.PrintInfo("Input file: %s", inputFile)

	var project models.Project
	if err := helpers.LoadJSON(inputFile, &project); err != nil {
		return fmt.Errorf("failed to load project file: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	generator, err := services.NewGenerator(&cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	analysisService := services.NewAnalysisService(store, generator)
	result, err := analysisService.AnalyzeProject(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to analyze project: %w", err)
	}

	analysisService.DisplayAnalysis(result)

	if saveOutput || cfg.Output.Save {
		if err := analysisService.SaveAnalysisResult(result, cfg.Output.Dir); err != nil {
			return fmt.Errorf("failed to save analysis result: %w", err)
		}
	}

	helpers.PrintSuccess("Analysis completed successfully!")
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	helpers.PrintTitle("Initializing Project Advisor Configuration")

	if helpers.FileExists(configFile) && !confirm(fmt.Sprintf("Configuration file already exists at %s. Overwrite it? (y/N): ", configFile)) {
		helpers.PrintInfo("Configuration initialization cancelled.")
		return nil
	}

	if err := config.WriteSample(configFile); err != nil {
		return err
	}

	helpers.PrintSuccess("Configuration file created at %s", configFile)
	helpers.PrintWarning("Please edit the configuration file and add your API key and Mongo URI before serving.")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repositories.Store, error) {
	if cfg.Store.Driver == config.StoreMemory {
		helpers.PrintWarning("Using the in-memory store; nothing will be persisted")
		return repositories.NewMemoryRepository(), nil
	}

	repo, err := repositories.NewMongoRepository(ctx, &cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureIndexes(ctx); err != nil {
		helpers.PrintWarning("%v", err)
	}
	helpers.PrintSuccess("Connected to MongoDB database %s", cfg.Store.Database)
	return repo, nil
}

func closeStore(store repositories.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		helpers.PrintWarning("Failed to close store: %v", err)
	}
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(prompt)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
