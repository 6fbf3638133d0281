package cmd

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vallemsec/spectra-web/internal/config"
	"github.com/vallemsec/spectra-web/internal/shared/constants"
)

//go:embed templates/spectra-web.yaml
var configTemplate embed.FS

const configTemplatePath = "templates/spectra-web.yaml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented configuration file",
	Long: `Initialize writes a spectra-web.yaml configuration file with every key,
its default and a short explanation.

Examples:
  # Create spectra-web.yaml in the current directory
  spectra-web init

  # Create the per-user config file
  spectra-web init -o ~/.config/spectra-web/spectra-web.yaml

  # Force overwrite existing file
  spectra-web init -f`,
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE:        runInitCmd,
}

func init() {
	initCmd.Flags().StringP("output", "o", config.DefaultFile(), "Output file path for the configuration")
	initCmd.Flags().BoolP("force", "f", false, "Overwrite existing configuration file")
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(configTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, constants.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s Created configuration file: %s\n", colorSuccess("✓"), outputPath)
	fmt.Fprintln(w, "Set mode to live and fill in scanner_endpoint to use the real scanner.")
	return nil
}
