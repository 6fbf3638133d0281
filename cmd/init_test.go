package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vallemsec/spectra-web/internal/config"
)

func initTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "init"}
	cmd.Flags().StringP("output", "o", config.DefaultFile(), "")
	cmd.Flags().BoolP("force", "f", false, "")
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestInitCmdFlags(t *testing.T) {
	output := initCmd.Flags().Lookup("output")
	if output == nil || output.Shorthand != "o" || output.DefValue != "spectra-web.yaml" {
		t.Fatalf("unexpected output flag %+v", output)
	}
	force := initCmd.Flags().Lookup("force")
	if force == nil || force.Shorthand != "f" || force.DefValue != "false" {
		t.Fatalf("unexpected force flag %+v", force)
	}
}

func TestRunInitCmd(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		outputPath := filepath.Join(t.TempDir(), "spectra-web.yaml")

		if err := runInitCmd(initTestCommand(t, "-o", outputPath), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read config file: %v", err)
		}
		want, _ := configTemplate.ReadFile(configTemplatePath)
		if !bytes.Equal(content, want) {
			t.Error("expected file to match the embedded template")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		outputPath := filepath.Join(t.TempDir(), "nested", "dir", "spectra-web.yaml")

		if err := runInitCmd(initTestCommand(t, "-o", outputPath), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(outputPath); err != nil {
			t.Fatalf("expected config file: %v", err)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		outputPath := filepath.Join(t.TempDir(), "spectra-web.yaml")
		if err := os.WriteFile(outputPath, []byte("mode: live\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		err := runInitCmd(initTestCommand(t, "-o", outputPath), nil)
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Fatalf("expected already exists error, got %v", err)
		}
		content, _ := os.ReadFile(outputPath)
		if string(content) != "mode: live\n" {
			t.Error("existing file was modified")
		}
	})

	t.Run("force overwrites", func(t *testing.T) {
		outputPath := filepath.Join(t.TempDir(), "spectra-web.yaml")
		if err := os.WriteFile(outputPath, []byte("mode: live\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		if err := runInitCmd(initTestCommand(t, "-o", outputPath, "-f"), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, _ := os.ReadFile(outputPath)
		if !strings.Contains(string(content), "scanner_endpoint") {
			t.Error("expected template content after force")
		}
	})
}

func TestConfigTemplateLoads(t *testing.T) {
	content, err := configTemplate.ReadFile(configTemplatePath)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}

	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		t.Fatalf("template is not valid YAML: %v", err)
	}

	cfg := config.FromViper(v)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("template should validate: %v", err)
	}
	if cfg.Mode != config.ModeFixture || cfg.BlogPosts != 3 {
		t.Fatalf("unexpected template values %+v", cfg)
	}
}
