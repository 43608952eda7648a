package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/victorlunam/schemacmp/internal/comparator"
	"github.com/victorlunam/schemacmp/internal/compare"
	"github.com/victorlunam/schemacmp/internal/config"
	"github.com/victorlunam/schemacmp/internal/database"
	"github.com/victorlunam/schemacmp/internal/logging"
	"github.com/victorlunam/schemacmp/internal/panel"
	"github.com/victorlunam/schemacmp/internal/ui"
)

var (
	configPath string
	verbose    bool
	dumpDefs   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schemacmp",
		Short: "Compare SQL Server schemas",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&dumpDefs, "log", "l", false, "dump normalized definitions to a logs directory")

	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newDiffCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Open the interactive schema-compare panel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			objectTypes := selectObjectTypes()
			if len(objectTypes) == 0 {
				color.Yellow("No object types selected")
				return nil
			}

			provider, logger, err := newProvider(objectTypes, cfg)
			if err != nil {
				return err
			}

			sess := panel.NewSession(provider, cfg.Source.Endpoint(), cfg.Target.Endpoint(), logger)
			program := tea.NewProgram(ui.NewPanelModel(sess), tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				color.Red("Error running panel: %v", err)
				return err
			}
			return nil
		},
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Compare and write the update script without the panel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			objectTypes := selectObjectTypes()
			if len(objectTypes) == 0 {
				color.Yellow("No object types selected")
				return nil
			}

			provider, _, err := newProvider(objectTypes, cfg)
			if err != nil {
				return err
			}

			ctx := context.Background()
			result, err := provider.Compare(ctx, cfg.Source.Endpoint(), cfg.Target.Endpoint())
			if err != nil {
				color.Red("Error during comparison: %v", err)
				return err
			}
			if !result.Success {
				message := result.ErrorMessage
				if message == "" {
					message = "Unknown"
				}
				color.Red("Schema comparison failed: %s", message)
				return fmt.Errorf("schema comparison failed")
			}

			rows := compare.FlattenForDisplay(result.Differences)
			if len(rows) == 0 {
				color.Green("No schema differences were found")
				return nil
			}

			timestamp := time.Now().Format("20060102150405")
			fileName := fmt.Sprintf("schema-diff-%s-%s-%s-%s.sql",
				cfg.Source.Database, cfg.Target.Database, strings.Join(objectTypes, "-"), timestamp)

			if err := provider.GenerateScript(ctx, result.OperationID, cfg.Target.Database, fileName); err != nil {
				color.Red("Error generating script: %v", err)
				return err
			}

			color.Cyan("Found %d differences", len(rows))
			color.Green("Comparison completed. The results are in the '%s' file", fileName)
			return nil
		},
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	if cfg.Validate() != nil {
		color.Cyan("Configuration for SOURCE DATABASE:")
		cfg.Source = readEndpointConfig(cfg.Source)
		color.Cyan("Configuration for TARGET DATABASE:")
		cfg.Target = readEndpointConfig(cfg.Target)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func readEndpointConfig(base config.EndpointConfig) config.EndpointConfig {
	fmt.Printf("Server (default: %s): ", base.Server)
	fmt.Scanln(&base.Server)
	if base.Server == "" {
		base.Server = "localhost"
	}

	fmt.Printf("Port (default: %s): ", base.Port)
	fmt.Scanln(&base.Port)
	if base.Port == "" {
		base.Port = "1433"
	}

	fmt.Print("User: ")
	fmt.Scanln(&base.User)

	fmt.Print("Password: ")
	fmt.Scanln(&base.Password)

	fmt.Print("Database: ")
	fmt.Scanln(&base.Database)
	if base.Database == "" {
		log.Fatal("The database name is required")
	}

	return base
}

func newProvider(objectTypes []string, cfg config.Config) (compare.Provider, *zap.Logger, error) {
	logger, err := logging.New(verbose)
	if err != nil {
		return nil, nil, err
	}

	opts := comparator.Options{ObjectTypes: objectTypes}
	if dumpDefs {
		opts.DumpDir = fmt.Sprintf("logs-%s-%s-%s",
			cfg.Source.Database, cfg.Target.Database, time.Now().Format("20060102150405"))
		color.Green("Definition logging enabled: %s", opts.DumpDir)
	}

	return comparator.New(logger, opts), logger, nil
}

func selectObjectTypes() []string {
	selector := ui.NewSelectorModel(database.ObjectTypes)

	program := tea.NewProgram(selector)
	m, err := program.Run()
	if err != nil {
		color.Red("Error running program: %v", err)
		os.Exit(1)
	}

	finalModel := m.(ui.SelectorModel)
	return finalModel.SelectedValues()
}
