// Package cmd implements the command-line interface for vidplay.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dustin/go-humanize"
	"github.com/invopop/jsonschema"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vidplay-cli/vidplay/color"
	"github.com/vidplay-cli/vidplay/history"
	"github.com/vidplay-cli/vidplay/icon"
	"github.com/vidplay-cli/vidplay/key"
	"github.com/vidplay-cli/vidplay/style"
	"github.com/vidplay-cli/vidplay/util"
	"github.com/vidplay-cli/vidplay/where"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

// historyCmd groups the playback history subcommands.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear the list of played media",
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyListCmd.Flags().IntP("limit", "n", 0, "Maximum number of entries to show (defaults to history.limit)")
	historyListCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	historyListCmd.SetOut(os.Stdout)
}

var historyListCmd = &cobra.Command{
	Use:     "list [query]",
	Short:   "List played media, newest first",
	Long:    "List played media, newest first. A query keeps only entries whose URI fuzzy-matches it.",
	Aliases: []string{"ls"},
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit := lo.Must(cmd.Flags().GetInt("limit"))
		if !cmd.Flags().Changed("limit") {
			limit = viper.GetInt(key.HistoryLimit)
		}

		store, err := history.Open(where.History())
		handleErr(err)
		defer util.Ignore(store.Close)

		var entries []history.Entry
		if len(args) == 0 {
			entries, err = store.List(limit)
			handleErr(err)
		} else {
			entries, err = store.List(0)
			handleErr(err)
			entries = filterEntries(entries, args[0], limit)
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("No history yet"))
			return
		}

		for _, entry := range entries {
			cmd.Println(formatEntry(entry))
		}
	},
}

// filterEntries keeps up to limit entries whose URI fuzzy-matches query, preserving order.
func filterEntries(entries []history.Entry, query string, limit int) []history.Entry {
	matched := lo.Filter(entries, func(e history.Entry, _ int) bool {
		return fuzzy.MatchFold(query, e.URI)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func formatEntry(entry history.Entry) string {
	progress := humanize.FtoaWithDigits(entry.Progress()*100, 1) + "%"
	if entry.Duration <= 0 {
		progress = entry.Position.Truncate(time.Second).String()
	}

	return fmt.Sprintf(
		"%s %s %s %s",
		style.Fg(color.Purple)(entry.URI),
		style.Fg(color.Yellow)(progress),
		style.Faint(entry.Outcome),
		style.Faint(humanize.Time(entry.PlayedAt)),
	)
}

func init() {
	historyCmd.AddCommand(historyClearCmd)
	historyClearCmd.Flags().BoolP("purge", "p", false, "Delete the history database file instead of emptying it")
	historyClearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every played media",
	Run: func(cmd *cobra.Command, args []string) {
		if !lo.Must(cmd.Flags().GetBool("yes")) {
			var confirmed bool
			handleErr(survey.AskOne(&survey.Confirm{
				Message: "Forget every played media?",
				Default: false,
			}, &confirmed))

			if !confirmed {
				return
			}
		}

		path := where.History()

		if lo.Must(cmd.Flags().GetBool("purge")) {
			handleErr(util.Delete(path))
		} else {
			store, err := history.Open(path)
			handleErr(err)
			err = store.Clear()
			util.Ignore(store.Close)
			handleErr(err)
		}

		fmt.Printf("%s history cleared\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

func init() {
	historyCmd.AddCommand(historySchemaCmd)
}

// historySchemaCmd prints the JSON Schema of "history list --json".
var historySchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the history list --json output",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			return filepath.Base(t.PkgPath()) + "." + t.Name()
		}

		handleErr(json.NewEncoder(os.Stdout).Encode(reflector.Reflect([]history.Entry{})))
	},
}
