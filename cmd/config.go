package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// flagBindings maps persistent flag names to configuration keys.
var flagBindings = map[string]string{
	"mode":             "mode",
	"scanner-endpoint": "scanner_endpoint",
	"cms-endpoint":     "cms_endpoint",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"log-file":         "log.file",
}

// bindFlags lets explicitly set flags override every other source. Unset
// flags fall through to the environment, the config file and the defaults.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagBindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging flags, environment, config file and
defaults. The output is valid YAML and can be used as a config file.`,
	RunE: runConfigCmd,
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	appCtx := getAppContext(cmd)
	if appCtx == nil {
		return fmt.Errorf("configuration not loaded")
	}

	out, err := yaml.Marshal(appCtx.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	w := cmd.OutOrStdout()
	if used := appCtx.Viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(w, "# config file: %s\n", used)
	} else {
		fmt.Fprintln(w, "# no config file found, showing defaults and overrides")
	}
	_, err = w.Write(out)
	return err
}
