package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vidplay-cli/vidplay/color"
	"github.com/vidplay-cli/vidplay/config"
	"github.com/vidplay-cli/vidplay/icon"
	"github.com/vidplay-cli/vidplay/key"
	"github.com/vidplay-cli/vidplay/session"
	"github.com/vidplay-cli/vidplay/style"
)

func errUnknownKey(name string) error {
	closest := lo.MinBy(lo.Keys(config.Default), func(a, b string) bool {
		return levenshtein.Distance(name, a) < levenshtein.Distance(name, b)
	})

	return fmt.Errorf(
		"unknown key %s, did you mean %s?",
		style.Fg(color.Red)(name),
		style.Fg(color.Yellow)(closest),
	)
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

// lookupField returns the default field registered under name.
func lookupField(name string) (config.Field, error) {
	field, ok := config.Default[name]
	if !ok {
		return config.Field{}, errUnknownKey(name)
	}
	return field, nil
}

// selectFields returns the named fields sorted by key, or every field when names is empty.
func selectFields(names []string) ([]config.Field, error) {
	fields := lo.Values(config.Default)
	if len(names) > 0 {
		fields = make([]config.Field, 0, len(names))
		for _, name := range names {
			field, err := lookupField(name)
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
		}
	}

	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Key < fields[j].Key
	})
	return fields, nil
}

// keyArg takes the key from the first positional argument and falls back to --key.
func keyArg(args []string, flag string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if flag != "" {
		return flag, nil
	}
	return "", errors.New("key is required as an argument or --key flag")
}

// allowedValues restricts keys whose value must be one of a fixed set.
var allowedValues = map[string][]string{
	key.PlayerBackend: session.Backends,
	key.IconsVariant:  icon.AvailableVariants(),
	key.LogsLevel:     {"panic", "fatal", "error", "warn", "info", "debug", "trace"},
}

func validateValue(k string, v any) error {
	allowed, ok := allowedValues[k]
	if !ok {
		return nil
	}

	if s, ok := v.(string); ok && lo.Contains(allowed, s) {
		return nil
	}
	return fmt.Errorf("invalid value %v for %s, expected one of %v", v, k, allowed)
}

// parseValue converts raw command-line words to the type of the field's default.
func parseValue(field config.Field, raw []string) (any, error) {
	if len(raw) == 0 {
		return nil, errors.New("value is required as an argument or --value flag")
	}

	var (
		v   any
		err error
	)
	switch field.Value.(type) {
	case []string:
		v = raw
	case int:
		v, err = strconv.Atoi(raw[0])
	case bool:
		v, err = strconv.ParseBool(raw[0])
	default:
		v = strings.Join(raw, " ")
	}
	if err != nil {
		return nil, fmt.Errorf("%s expects a %T: %w", field.Key, field.Value, err)
	}

	if err := validateValue(field.Key, v); err != nil {
		return nil, err
	}
	return v, nil
}

// saveConfig writes the config file, creating it on first use.
func saveConfig() error {
	err := viper.WriteConfig()
	if errors.As(err, new(viper.ConfigFileNotFoundError)) {
		return viper.SafeWriteConfig()
	}
	return err
}

func success(format string, args ...any) string {
	return style.Fg(color.Green)(icon.Get(icon.Success)) + " " + fmt.Sprintf(format, args...)
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInfoCmd)
	configInfoCmd.Flags().BoolP("json", "j", false, "print the fields as JSON")

	configCmd.AddCommand(configGetCmd)
	configGetCmd.Flags().StringP("key", "k", "", "key to read")
	_ = configGetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)

	configCmd.AddCommand(configSetCmd)
	configSetCmd.Flags().StringP("key", "k", "", "key to change")
	configSetCmd.Flags().StringSliceP("value", "v", nil, "new value")
	_ = configSetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)

	configCmd.AddCommand(configResetCmd)
	configResetCmd.Flags().BoolP("all", "a", false, "reset every key")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change vidplay settings",
}

var configInfoCmd = &cobra.Command{
	Use:               "info [key...]",
	Short:             "Describe settings and their defaults",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		fields, err := selectFields(args)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(fields))
			return
		}

		pretty := lo.Map(fields, func(f config.Field, _ int) string { return f.Pretty() })
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(pretty, "\n\n"))
	},
}

var configGetCmd = &cobra.Command{
	Use:               "get [key]",
	Short:             "Print the current value of a setting",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		name, err := keyArg(args, lo.Must(cmd.Flags().GetString("key")))
		handleErr(err)
		_, err = lookupField(name)
		handleErr(err)

		fmt.Fprintln(cmd.OutOrStdout(), viper.Get(name))
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set [key] [value...]",
	Short:             "Change a setting and save it",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		name, err := keyArg(args, lo.Must(cmd.Flags().GetString("key")))
		handleErr(err)
		field, err := lookupField(name)
		handleErr(err)

		raw := lo.Must(cmd.Flags().GetStringSlice("value"))
		if len(args) > 1 {
			raw = args[1:]
		}
		v, err := parseValue(field, raw)
		handleErr(err)

		viper.Set(name, v)
		handleErr(saveConfig())
		fmt.Fprintln(cmd.OutOrStdout(), success("set %s to %s", style.Fg(color.Purple)(name), style.Fg(color.Yellow)(fmt.Sprint(v))))
	},
}

var configResetCmd = &cobra.Command{
	Use:               "reset [key...]",
	Short:             "Restore settings to their defaults",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		all := lo.Must(cmd.Flags().GetBool("all"))
		if all == (len(args) > 0) {
			handleErr(errors.New("pass either keys or --all"))
		}

		fields, err := selectFields(args)
		handleErr(err)
		for _, field := range fields {
			viper.Set(field.Key, field.Value)
		}
		handleErr(saveConfig())

		names := lo.Map(fields, func(f config.Field, _ int) string { return f.Key })
		fmt.Fprintln(cmd.OutOrStdout(), success("reset %s", strings.Join(lo.Ternary(all, []string{"all settings"}, names), ", ")))
	},
}
