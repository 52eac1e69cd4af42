package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"igpicker/pkg/auth"
	"igpicker/pkg/config"
	"igpicker/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igpicker configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGPICKER_*, plus APIFY_TOKEN)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.igpicker.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration (token masked)",
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Output and log directory accessibility`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# igpicker configuration file
#
# Every option can also be set through environment variables prefixed with
# IGPICKER_, for example IGPICKER_PROVIDER_TOKEN or IGPICKER_EXPORT_FORMAT.

provider:
  # Apify API token. Prefer 'igpicker auth login' over storing it here.
  token: ""
  base_url: "https://api.apify.com"
  actor: "apify~instagram-scraper"
  # Posts requested per account; also the number of photo_N columns (1-50)
  results_limit: 5
  # One actor run can take a while
  timeout: 2m

# Pacing of provider calls
rate_limit:
  requests_per_minute: 30

# Retries are off by default: every attempt is a billed actor run
retry:
  enabled: false
  max_attempts: 3
  initial_delay: 2s
  max_delay: 30s
  multiplier: 2.0

export:
  # csv or xlsx
  format: "csv"
  file_name: "instagram_photos"
  output_directory: "."
  # When false, an existing file gets a timestamped sibling instead
  overwrite_existing: false

# Browser front end ('igpicker serve')
server:
  host: "127.0.0.1"
  port: 8501
  # debug, release or test
  mode: "release"
  requests_per_second: 2
  burst: 5
  session_ttl: 30m

notifications:
  enabled: false
  on_export: true
  on_error: true

logging:
  # debug, info, warn, error
  level: "info"
  # console or json
  format: "console"
  # Optional log file (JSON lines)
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".igpicker.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return fmt.Errorf("refusing to overwrite %s", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your Apify token with 'igpicker auth login'")
	fmt.Println("2. Run 'igpicker config validate' to check the configuration")
	fmt.Println("3. Start picking with 'igpicker pick <username>...'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	display := *cfg
	if display.Provider.Token != "" {
		display.Provider.Token = auth.MaskToken(display.Provider.Token)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Printf("2. Environment variables (%s*, APIFY_TOKEN)\n", config.EnvPrefix)
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		return err
	}

	var warnings, problems []string

	if cfg.Provider.Token == "" {
		warnings = append(warnings, "no provider token configured; 'pick' will use the stored credential or prompt")
	}
	if cfg.Retry.Enabled {
		warnings = append(warnings, "retries are enabled; every retry is a billed actor run")
	}
	if err := os.MkdirAll(cfg.Export.OutputDirectory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("configuration has %d errors", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Posts per account: %d\n", cfg.Provider.ResultsLimit)
	fmt.Printf("  Provider timeout: %s\n", cfg.Provider.Timeout)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Export: %s in %s\n", cfg.Export.Format, cfg.Export.OutputDirectory)
	fmt.Printf("  Server: %s\n", cfg.Server.Addr())
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
