// Package cmd implements the command-line interface for vidplay.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/vidplay-cli/vidplay/color"
	"github.com/vidplay-cli/vidplay/constant"
	"github.com/vidplay-cli/vidplay/icon"
	"github.com/vidplay-cli/vidplay/key"
	"github.com/vidplay-cli/vidplay/log"
	"github.com/vidplay-cli/vidplay/session"
	"github.com/vidplay-cli/vidplay/style"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")
}

// rootCmd plays the single positional input.
var rootCmd = &cobra.Command{
	Use:   constant.Vidplay + " <input>",
	Short: "Play a video file or URI with keyboard transport controls",
	Long: style.New().Bold(true).Foreground(color.HiPurple).Render(constant.Vidplay) +
		style.New().Italic(true).Foreground(color.HiCyan).Render(" - play a video file or URI, controlled from stdin") + `

Commands are read line by line while playing:
  p  pause or resume
  s  seek forward
  r  seek backward
  q  quit`,
	Example: fmt.Sprintf("  %[1]s movie.mp4\n  %[1]s https://example.com/clip.webm", constant.Vidplay),
	Args: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("version") {
			return nil
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		CheckDependencies()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := session.OptionsFromConfig()
		opts.Stdout = cmd.OutOrStdout()
		opts.Stderr = cmd.ErrOrStderr()

		summary, err := session.Run(ctx, args[0], opts)
		log.Infof("session ended: %s", summary.Outcome())
		handleErr(err)
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// errSilent exits non-zero without printing anything more.
var errSilent = errors.New("")

func handleErr(err error) {
	if err == nil {
		return
	}

	log.Error(err)
	if !errors.Is(err, errSilent) {
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
	}
	os.Exit(1)
}

