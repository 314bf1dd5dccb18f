// Package cmd implements the command-line interface for vidplay.
package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vidplay-cli/vidplay/color"
	"github.com/vidplay-cli/vidplay/constant"
	"github.com/vidplay-cli/vidplay/icon"
	"github.com/vidplay-cli/vidplay/key"
	"github.com/vidplay-cli/vidplay/player/gstreamer"
	"github.com/vidplay-cli/vidplay/session"
	"github.com/vidplay-cli/vidplay/style"
	"github.com/vidplay-cli/vidplay/util"
	"github.com/vidplay-cli/vidplay/version"
)

// minMpvVersion is the oldest mpv whose JSON IPC supports request_id and end-file reasons.
const minMpvVersion = "0.33.0"

// requirement is one line of the check report.
type requirement struct {
	name     string
	ok       bool
	detail   string
	required bool
}

func (p requirement) String() string {
	mark := lo.Ternary(p.ok, style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Red)(icon.Get(icon.Fail)))
	if !p.ok && !p.required {
		mark = style.Fg(color.Yellow)(icon.Get(icon.Missing))
	}

	line := fmt.Sprintf("%s %s", mark, style.Bold(p.name))
	if p.detail != "" {
		line += " " + style.Faint(p.detail)
	}
	return line
}

func checkGStreamer(sinks []string) []requirement {
	results := []requirement{{
		name:     "playbin",
		ok:       gstreamer.Available("playbin"),
		required: true,
	}}

	for _, sink := range sinks {
		results = append(results, requirement{
			name:   sink,
			ok:     gstreamer.Available(sink),
			detail: "video sink",
		})
	}

	return results
}

func checkMpv(binary string) []requirement {
	path, err := exec.LookPath(binary)
	if err != nil {
		return []requirement{{name: binary, detail: "not found in PATH", required: true}}
	}

	found := requirement{name: binary, ok: true, detail: path, required: true}

	var out bytes.Buffer
	run := exec.Command(path, "--version")
	run.Stdout = &out
	if err := run.Run(); err != nil {
		return []requirement{found, {name: "version", detail: err.Error(), required: true}}
	}

	v, err := version.Extract(out.String())
	if err != nil {
		return []requirement{found, {name: "version", detail: err.Error(), required: true}}
	}

	cmp, err := version.Compare(v, minMpvVersion)
	return []requirement{found, {
		name:     "version " + v,
		ok:       err == nil && cmp >= 0,
		detail:   fmt.Sprintf("(minimum %s)", minMpvVersion),
		required: true,
	}}
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.SetOut(os.Stdout)
}

// checkCmd reports whether the configured backend can run.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured playback backend is installed",
	Run: func(cmd *cobra.Command, args []string) {
		backend := strings.ToLower(viper.GetString(key.PlayerBackend))

		erase := util.PrintErasable(fmt.Sprintf("%s Checking %s...", icon.Get(icon.Progress), backend))
		var results []requirement
		switch backend {
		case session.BackendGStreamer:
			results = checkGStreamer(viper.GetStringSlice(key.PlayerVideoSinks))
		case session.BackendMpv:
			results = checkMpv(viper.GetString(key.PlayerMpvPath))
		default:
			erase()
			_, err := session.NewPipeline(backend)
			handleErr(err)
		}
		erase()

		cmd.Println(style.New().Bold(true).Foreground(color.HiPurple).Render(util.Capitalize(backend)))
		for _, p := range results {
			cmd.Println("  " + p.String())
		}

		missing := lo.Filter(results, func(p requirement, _ int) bool {
			return p.required && !p.ok
		})
		if len(missing) > 0 {
			printMissingDependencyError(backend, missing[0].name)
			handleErr(errSilent)
		}
	},
}

// CheckDependencies verifies that the mpv executable is reachable before an mpv session starts.
// GStreamer problems surface when the pipeline is built.
func CheckDependencies() {
	if strings.ToLower(viper.GetString(key.PlayerBackend)) != session.BackendMpv {
		return
	}

	binary := viper.GetString(key.PlayerMpvPath)
	if _, err := exec.LookPath(binary); err != nil {
		printMissingDependencyError(session.BackendMpv, binary)
		os.Exit(1)
	}
}

func installHint(backend string) string {
	packages := map[string]map[string]string{
		session.BackendMpv: {
			constant.Darwin:  "brew install mpv",
			constant.Linux:   "sudo apt install mpv",
			constant.Windows: "scoop install mpv",
		},
		session.BackendGStreamer: {
			constant.Darwin:  "brew install gstreamer",
			constant.Linux:   "sudo apt install gstreamer1.0-plugins-base gstreamer1.0-plugins-good gstreamer1.0-gl",
			constant.Windows: "choco install gstreamer",
		},
	}
	return packages[backend][runtime.GOOS]
}

func printMissingDependencyError(backend, dep string) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(color.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := wrap.String(fmt.Sprintf("The %s backend needs '%s', which is missing or too old. Run \"%s check\" after installing it.", backend, dep, constant.Vidplay), 60)

	suggestion := ""
	if installCmd := installHint(backend); installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(color.HiCyan).Bold(true).Render(installCmd))
	}

	fmt.Fprintln(os.Stderr, box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
