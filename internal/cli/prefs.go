package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/intake-edge/internal/prefs"
)

func newPrefsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read or change display and consent preferences",
	}
	cmd.AddCommand(newPrefsGetCommand(opts), newPrefsSetCommand(opts))
	return cmd
}

func newPrefsGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one preference, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			store := prefs.New(a.kv)
			keys := args
			if len(keys) == 0 {
				for k := range prefs.Defaults {
					keys = append(keys, k)
				}
				sort.Strings(keys)
			}

			values := make(map[string]string, len(keys))
			for _, k := range keys {
				if _, known := prefs.Defaults[k]; !known {
					return fmt.Errorf("unknown preference %q", k)
				}
				v, _, err := store.Get(cmd.Context(), k)
				if err != nil {
					return err
				}
				values[k] = v
			}

			if a.json {
				return json.NewEncoder(a.out).Encode(values)
			}
			for _, k := range keys {
				fmt.Fprintf(a.out, "%s = %s\n", k, values[k])
			}
			return nil
		},
	}
}

func newPrefsSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			store := prefs.New(a.kv)
			ctx := cmd.Context()

			switch key {
			case prefs.KeyFontScale:
				scale, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return fmt.Errorf("font_scale must be a number")
				}
				if err := prefs.SetFontScale(ctx, store, scale); err != nil {
					return err
				}
			case prefs.KeyHighContrast, prefs.KeyInstallPromptDismissed, prefs.KeyAssistantConsent:
				on, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("%s must be true or false", key)
				}
				if err := prefs.SetFlag(ctx, store, key, on); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown preference %q", key)
			}

			fmt.Fprintf(a.out, "Set %s = %s\n", key, value)
			return nil
		},
	}
}
