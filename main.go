package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-i2p/go-updater/lib/config"
	"github.com/go-i2p/go-updater/lib/storage"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var log = logger.GetGoI2PLogger()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Errorf("go-updater: %s", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "go-updater",
		Short:         "Inspect and edit update repository settings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&config.CfgFile, "config", "", "tool configuration file (YAML)")
	flags.String("work-dir", "", "repository directory (default: current directory)")
	flags.String("storage-folder", storage.DefaultFolder, "registry folder inside the repository")
	flags.String("storage-file", storage.DefaultFilename, "registry file name")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(flags); err != nil {
			return err
		}
		return config.InitConfig()
	}

	root.AddCommand(newShowCmd(), newSetCmd(), newUnsetCmd(), newWriteClientCmd())
	return root
}

// flagKeys maps viper keys to the persistent flags that set them.
var flagKeys = []struct{ key, flag string }{
	{"work_dir", "work-dir"},
	{"storage.folder", "storage-folder"},
	{"storage.filename", "storage-file"},
}

func bindFlags(flags *pflag.FlagSet) error {
	for _, fk := range flagKeys {
		if err := viper.BindPFlag(fk.key, flags.Lookup(fk.flag)); err != nil {
			return oops.Wrapf(err, "bind flag --%s", fk.flag)
		}
	}
	return nil
}

// openSettings loads the repository settings as configured through viper.
func openSettings() (*config.Settings, error) {
	shared, err := storage.NewShared(config.StorageOptionsFromViper())
	if err != nil {
		return nil, err
	}
	return config.New(nil, config.OptionsFromViper(shared))
}

func newShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSettings()
			if err != nil {
				return err
			}
			return printFields(cmd.OutOrStdout(), s.Fields(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	return cmd
}

func printFields(w io.Writer, fields map[string]any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(fields)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlFields(fields)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return oops.Errorf("unknown format %q", format)
	}
}

// yamlFields converts json.Number values, which yaml would print as strings.
func yamlFields(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = yamlFields(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = yamlFields(val)
		}
		return out
	default:
		return v
	}
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Set a setting and save (VALUE is parsed as JSON, else taken as a string)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSettings()
			if err != nil {
				return err
			}
			if err := s.Set(args[0], parseValue(args[1])); err != nil {
				return err
			}
			return s.SavePersisted()
		},
	}
}

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset NAME...",
		Short: "Remove optional settings and save",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSettings()
			if err != nil {
				return err
			}
			for _, name := range args {
				s.Unset(name)
			}
			return s.SavePersisted()
		},
	}
}

func newWriteClientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write-client",
		Short: "Regenerate the client config without changing settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSettings()
			if err != nil {
				return err
			}
			if err := s.WriteClientConfig(); err != nil {
				return err
			}
			file, _ := s.ClientConfigFile()
			fmt.Fprintln(cmd.OutOrStdout(), file)
			return nil
		},
	}
}

func parseValue(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}
