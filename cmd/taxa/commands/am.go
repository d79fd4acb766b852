package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/taxa/am"
	"github.com/teranos/taxa/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Show and initialize taxa configuration",
	Long: `am - Show and initialize taxa configuration ("I am")

Configuration sources (later overrides earlier):
1. Built-in defaults
2. System config (/etc/taxa/am.toml)
3. User config (~/.taxa/config.toml, then ~/.taxa/am.toml)
4. Project config (./am.toml or ./config.toml, searched up from the working directory)
5. Environment variables (TAXA_* prefix)

Examples:
  taxa am show                    # Show the merged configuration
  taxa am show --format json      # Show it as JSON
  taxa am show --sources          # Show where each setting came from
  taxa am init                    # Write the defaults to ./am.toml`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Long:  "Write the built-in defaults to path (./am.toml when omitted). An existing file is rotated to .back1.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAmInit,
}

var (
	configFormat  string
	configSources bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amShowCmd.Flags().BoolVar(&configSources, "sources", false, "Show the source of every setting")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	if configSources {
		return showSources(cmd)
	}

	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(out, "# taxa configuration\n%s", data)
	case "toml":
		data, err := am.Render(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# taxa configuration\n%s", data)
	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func showSources(cmd *cobra.Command) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return err
	}
	if intro.ConfigFile != "" {
		pterm.Info.Printf("Active config file: %s\n", intro.ConfigFile)
	} else {
		pterm.Info.Println("No config file found, using defaults")
	}

	settings := intro.Settings
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })

	data := pterm.TableData{{"Key", "Value", "Source", "From"}}
	for _, s := range settings {
		data = append(data, []string{s.Key, fmt.Sprintf("%v", s.Value), string(s.Source), s.SourcePath})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := "am.toml"
	if len(args) == 1 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", path)
	}
	if _, err := os.Stat(abs); err == nil {
		pterm.Warning.Printf("%s exists; the previous version is kept as %s.back1\n", abs, abs)
	}
	if err := am.Save(am.Default(), abs); err != nil {
		return err
	}
	pterm.Success.Printf("Wrote %s\n", abs)
	return nil
}
