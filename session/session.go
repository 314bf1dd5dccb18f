// Package session runs one playback: it starts the pipeline, drives the transport controls from
// stdin and watches the bus until playback ends.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muesli/cancelreader"
	"github.com/spf13/viper"
	"github.com/vidplay-cli/vidplay/bus"
	"github.com/vidplay-cli/vidplay/history"
	"github.com/vidplay-cli/vidplay/key"
	"github.com/vidplay-cli/vidplay/log"
	"github.com/vidplay-cli/vidplay/player"
	"github.com/vidplay-cli/vidplay/resolve"
	"github.com/vidplay-cli/vidplay/style"
	"github.com/vidplay-cli/vidplay/transport"
	"golang.org/x/term"
)

// Options configure a session. Zero values fall back to the process streams and NewPipeline.
type Options struct {
	Backend    string
	VideoSinks []string
	SeekStep   time.Duration

	// CancelOnExit interrupts the pending stdin read once the bus loop ends. Without it the
	// session waits for the next input line or EOF before returning.
	CancelOnExit bool

	SaveHistory  bool
	HistoryLimit int

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	NewPipeline Factory
	Record      func(entry history.Entry, keep int) error
}

// OptionsFromConfig reads the player, input and history sections of the configuration.
func OptionsFromConfig() Options {
	return Options{
		Backend:      viper.GetString(key.PlayerBackend),
		VideoSinks:   viper.GetStringSlice(key.PlayerVideoSinks),
		SeekStep:     time.Duration(viper.GetInt(key.PlayerSeekStep)) * time.Millisecond,
		CancelOnExit: viper.GetBool(key.InputCancelOnExit),
		SaveHistory:  viper.GetBool(key.HistorySave),
		HistoryLimit: viper.GetInt(key.HistoryLimit),
	}
}

func (o *Options) setDefaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.NewPipeline == nil {
		o.NewPipeline = NewPipeline
	}
	if o.Record == nil {
		o.Record = history.Record
	}
	if o.SeekStep <= 0 {
		o.SeekStep = transport.DefaultStep
	}
}

// lineWriter serializes writes so that lines from the controller and the bus loop never interleave.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Summary describes how a session ended.
type Summary struct {
	URI       string
	Bus       bus.Result
	Transport transport.Outcome
	Position  time.Duration
	Duration  time.Duration
}

// Outcome is the single word stored in history: the bus reason when the bus ended the session,
// the transport outcome otherwise.
func (s Summary) Outcome() string {
	if s.Bus.Reason == bus.ReasonCanceled {
		return s.Transport.String()
	}
	return s.Bus.Reason.String()
}

// Run plays input until end of stream, a pipeline error or quit. Errors before playback starts
// are returned as is; afterwards only a failed transport command is returned.
func Run(ctx context.Context, input string, opts Options) (Summary, error) {
	opts.setDefaults()

	uri, err := resolve.ToURI(input)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{URI: uri}

	pipeline, err := opts.NewPipeline(opts.Backend)
	if err != nil {
		return summary, fmt.Errorf("create pipeline: %w", err)
	}
	log.Infof("session: %s backend, pipeline %s", opts.Backend, pipeline.ID())

	attachSink(pipeline, opts.VideoSinks)

	if err := pipeline.SetSource(uri); err != nil {
		_ = pipeline.Close()
		return summary, fmt.Errorf("set source: %w", err)
	}

	if err := pipeline.SetState(player.StatePlaying); err != nil {
		_ = pipeline.Close()
		return summary, fmt.Errorf("failed to set pipeline to Playing: %w", err)
	}

	hint := controlsHint(opts.Stdout, opts.SeekStep)
	stdout := &lineWriter{w: opts.Stdout}
	fmt.Fprintf(stdout, "Playing: %s\n", uri)
	fmt.Fprintln(stdout, hint)

	stdin := cancellable(opts.Stdin)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg         sync.WaitGroup
		outcome    transport.Outcome
		controlErr error
	)

	controller := transport.NewController(pipeline, stdout, opts.SeekStep)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcome, controlErr = controller.Run(ctx, stdin)
		log.Debugf("session: controller finished: %s", outcome)
		if outcome == transport.OutcomeQuit || outcome == transport.OutcomeFailed {
			cancel()
		}
	}()

	watcher := bus.NewWatcher(pipeline.ID(), stdout, opts.Stderr)
	summary.Bus = watcher.Watch(ctx, pipeline.Events())
	log.Infof("session: bus loop ended: %s", summary.Bus.Reason)

	position, duration := pipeline.QueryPosition(), pipeline.QueryDuration()

	cancel()
	if opts.CancelOnExit {
		stdin.Cancel()
	}

	if err := pipeline.SetState(player.StateNull); err != nil {
		log.Warnf("session: set Null: %v", err)
	}

	wg.Wait()
	summary.Transport = outcome

	lastPosition, lastDuration := controller.LastKnown()
	summary.Position = position.OrElse(lastPosition.OrEmpty())
	summary.Duration = duration.OrElse(lastDuration.OrEmpty())
	_ = stdin.Close()

	if err := pipeline.Close(); err != nil {
		log.Warnf("session: close pipeline: %v", err)
	}

	if opts.SaveHistory {
		entry := history.Entry{
			URI:      uri,
			Position: summary.Position,
			Duration: summary.Duration,
			Outcome:  summary.Outcome(),
		}
		if err := opts.Record(entry, opts.HistoryLimit); err != nil {
			log.Warnf("session: save history: %v", err)
		}
	}

	return summary, controlErr
}

// attachSink installs the first available preferred video sink. Failure leaves the engine's own
// choice in place.
func attachSink(pipeline player.Pipeline, candidates []string) {
	attacher, ok := pipeline.(player.VideoSinkAttacher)
	if !ok || len(candidates) == 0 {
		return
	}

	name, err := attacher.AttachVideoSink(candidates...)
	if err != nil {
		log.Warnf("session: no preferred video sink: %v", err)
		return
	}
	log.Infof("session: video sink %s", name)
}

func controlsHint(out io.Writer, step time.Duration) string {
	hint := fmt.Sprintf("Controls (type then Enter): p=pause/play | s=+%s | r=-%s | q=quit", step, step)
	if isTerminal(out) {
		return style.Faint(hint)
	}
	return hint
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// cancellable wraps in so that a blocked read can be interrupted. Readers that already support
// cancellation are used as they are. Inputs the poller rejects, such as regular files and
// /dev/null, are read as they are and cannot be interrupted.
func cancellable(in io.Reader) cancelreader.CancelReader {
	if r, ok := in.(cancelreader.CancelReader); ok {
		return r
	}
	if !isTerminal(in) {
		log.Debug("session: input is not a terminal")
	}

	r, err := cancelreader.NewReader(in)
	if err != nil {
		log.Warnf("session: input cannot be interrupted: %v", err)
		return uncancellable{in}
	}
	return r
}

// uncancellable is a CancelReader whose reads always run to completion.
type uncancellable struct {
	io.Reader
}

func (uncancellable) Cancel() bool { return false }

func (uncancellable) Close() error { return nil }
