package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/muesli/cancelreader"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidplay-cli/vidplay/bus"
	"github.com/vidplay-cli/vidplay/history"
	"github.com/vidplay-cli/vidplay/player"
	"github.com/vidplay-cli/vidplay/player/playertest"
	"github.com/vidplay-cli/vidplay/resolve"
	"github.com/vidplay-cli/vidplay/transport"
)

const hint = "Controls (type then Enter): p=pause/play | s=+10s | r=-10s | q=quit"

// scripted posts extra events once playback is requested.
type scripted struct {
	*playertest.Pipeline
	onPlaying []player.Event
}

func (s *scripted) SetState(target player.State) error {
	if err := s.Pipeline.SetState(target); err != nil {
		return err
	}
	if target == player.StatePlaying {
		s.Post(s.onPlaying...)
	}
	return nil
}

// pipeInput is a cancellable stdin backed by an io.Pipe.
type pipeInput struct {
	*io.PipeReader
}

func (p pipeInput) Cancel() bool {
	_ = p.CloseWithError(cancelreader.ErrCanceled)
	return true
}

type recorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *recorder) record(entry history.Entry, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func movie(t *testing.T) (path, uri string) {
	t.Helper()
	dir := t.TempDir()
	path = filepath.Join(dir, "movie.mp4")
	if err := os.WriteFile(path, []byte("not really a movie"), 0o644); err != nil {
		t.Fatal(err)
	}
	canonical, err := resolve.Canonicalize(path)
	if err != nil {
		t.Fatal(err)
	}
	return path, resolve.FileURI(canonical)
}

func runAsync(input string, opts Options) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := Run(context.Background(), input, opts)
		done <- err
	}()
	return done
}

func TestRun(t *testing.T) {
	Convey("Given a local file and a scripted pipeline", t, func() {
		path, uri := movie(t)

		fake := &scripted{Pipeline: playertest.New("playbin0").WithSinks("autovideosink")}
		fake.AutoPost = true

		var built []string
		var stdout, stderr bytes.Buffer
		rec := &recorder{}
		stdinR, stdinW := io.Pipe()
		defer stdinW.Close()

		opts := Options{
			Backend:      BackendGStreamer,
			VideoSinks:   []string{"glimagesink", "autovideosink"},
			CancelOnExit: true,
			SaveHistory:  true,
			HistoryLimit: 10,
			Stdin:        pipeInput{stdinR},
			Stdout:       &stdout,
			Stderr:       &stderr,
			NewPipeline: func(backend string) (player.Pipeline, error) {
				built = append(built, backend)
				return fake, nil
			},
			Record: rec.record,
		}

		Convey("end of stream shuts the session down and interrupts the pending read", func() {
			fake.onPlaying = []player.Event{{Kind: player.EventEndOfStream, Source: "playbin0"}}

			summary, err := Run(context.Background(), path, opts)
			So(err, ShouldBeNil)
			So(built, ShouldResemble, []string{BackendGStreamer})
			So(fake.URI(), ShouldEqual, uri)
			So(summary.URI, ShouldEqual, uri)
			So(summary.Bus.Reason, ShouldEqual, bus.ReasonEndOfStream)
			So(summary.Transport, ShouldEqual, transport.OutcomeCanceled)
			So(fake.Requests(), ShouldResemble, []player.State{player.StatePlaying, player.StateNull})
			So(fake.Closed(), ShouldBeTrue)

			So(stdout.String(), ShouldEqual, "Playing: "+uri+"\n"+hint+"\n"+
				"Pipeline state: Null -> Playing\n"+
				"End of stream.\n")
			So(stderr.String(), ShouldBeEmpty)

			So(rec.entries, ShouldHaveLength, 1)
			So(rec.entries[0].URI, ShouldEqual, uri)
			So(rec.entries[0].Outcome, ShouldEqual, "eos")
		})

		Convey("a pipeline error is printed to stderr and ends the session cleanly", func() {
			fake.onPlaying = []player.Event{
				{Kind: player.EventStateChanged, Source: "qtdemux0", Old: player.StateReady, New: player.StatePaused},
				{Kind: player.EventError, Source: "qtdemux0", Message: "Internal data stream error.", Debug: "not-negotiated"},
			}

			summary, err := Run(context.Background(), path, opts)
			So(err, ShouldBeNil)
			So(summary.Bus.Reason, ShouldEqual, bus.ReasonError)
			So(stderr.String(), ShouldEqual, "Error from qtdemux0: Internal data stream error. (not-negotiated)\n")
			So(stdout.String(), ShouldNotContainSubstring, "qtdemux0")
			So(rec.entries[0].Outcome, ShouldEqual, "error")
		})

		Convey("q ends the session without waiting for the bus", func() {
			fake.WithPosition(3 * time.Second).WithDuration(time.Minute)
			go func() { _, _ = stdinW.Write([]byte("p\nq\n")) }()

			summary, err := Run(context.Background(), path, opts)
			So(err, ShouldBeNil)
			So(summary.Transport, ShouldEqual, transport.OutcomeQuit)
			So(summary.Bus.Reason, ShouldEqual, bus.ReasonCanceled)
			So(summary.Outcome(), ShouldEqual, "quit")
			So(summary.Position, ShouldEqual, 3*time.Second)
			So(summary.Duration, ShouldEqual, time.Minute)
			So(stdout.String(), ShouldContainSubstring, "State -> Paused\n")
			So(stdout.String(), ShouldContainSubstring, "Quitting…\n")
			So(fake.Requests(), ShouldResemble, []player.State{player.StatePlaying, player.StatePaused, player.StateNull, player.StateNull})
			So(rec.entries[0].Position, ShouldEqual, 3*time.Second)
		})

		Convey("a failed seek is returned to the caller", func() {
			fake.WithPosition(time.Second).FailSeeks(errors.New("not seekable"))
			go func() { _, _ = stdinW.Write([]byte("s\n")) }()

			summary, err := Run(context.Background(), path, opts)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not seekable")
			So(summary.Transport, ShouldEqual, transport.OutcomeFailed)
			So(fake.Closed(), ShouldBeTrue)
		})

		Convey("without input cancellation the session waits for the input to close", func() {
			opts.CancelOnExit = false
			fake.onPlaying = []player.Event{{Kind: player.EventEndOfStream}}

			done := runAsync(path, opts)
			select {
			case <-done:
				So("session returned before input closed", ShouldBeEmpty)
			case <-time.After(150 * time.Millisecond):
			}

			So(stdinW.Close(), ShouldBeNil)
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(2 * time.Second):
				So("session did not return after input closed", ShouldBeEmpty)
			}
			So(fake.Requests(), ShouldResemble, []player.State{player.StatePlaying, player.StateNull})
		})

		Convey("a regular file on stdin is read to the end without cancellation", func() {
			f, err := os.CreateTemp(t.TempDir(), "commands")
			So(err, ShouldBeNil)
			_, err = f.WriteString("p\nq\n")
			So(err, ShouldBeNil)
			_, err = f.Seek(0, io.SeekStart)
			So(err, ShouldBeNil)
			Reset(func() { _ = f.Close() })
			opts.Stdin = f

			summary, err := Run(context.Background(), path, opts)
			So(err, ShouldBeNil)
			So(summary.Transport, ShouldEqual, transport.OutcomeQuit)
			So(stdout.String(), ShouldContainSubstring, "State -> Paused\n")
			So(fake.Requests(), ShouldResemble, []player.State{player.StatePlaying, player.StatePaused, player.StateNull, player.StateNull})
			So(fake.Closed(), ShouldBeTrue)
		})

		Convey("/dev/null on stdin leaves the bus to end the session", func() {
			f, err := os.Open(os.DevNull)
			So(err, ShouldBeNil)
			Reset(func() { _ = f.Close() })
			opts.Stdin = f
			fake.onPlaying = []player.Event{{Kind: player.EventEndOfStream, Source: "playbin0"}}

			summary, err := Run(context.Background(), path, opts)
			So(err, ShouldBeNil)
			So(summary.Bus.Reason, ShouldEqual, bus.ReasonEndOfStream)
			So(stdout.String(), ShouldEndWith, "End of stream.\n")
			So(rec.entries[0].Outcome, ShouldEqual, "eos")
		})

		Convey("history is skipped when disabled", func() {
			opts.SaveHistory = false
			fake.onPlaying = []player.Event{{Kind: player.EventEndOfStream}}

			_, err := Run(context.Background(), path, opts)
			So(err, ShouldBeNil)
			So(rec.entries, ShouldBeEmpty)
		})

		Convey("a missing sink is tolerated", func() {
			fake.WithSinks()
			fake.onPlaying = []player.Event{{Kind: player.EventEndOfStream}}

			_, err := Run(context.Background(), path, opts)
			So(err, ShouldBeNil)
			So(stdout.String(), ShouldStartWith, "Playing: "+uri+"\n")
		})

		Convey("URIs are passed through untouched", func() {
			fake.onPlaying = []player.Event{{Kind: player.EventEndOfStream}}

			summary, err := Run(context.Background(), "https://example.com/clip.webm", opts)
			So(err, ShouldBeNil)
			So(summary.URI, ShouldEqual, "https://example.com/clip.webm")
			So(fake.URI(), ShouldEqual, "https://example.com/clip.webm")
		})

		Convey("an unresolvable path fails before a pipeline is built", func() {
			_, err := Run(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), opts)
			So(errors.Is(err, resolve.ErrUnresolvable), ShouldBeTrue)
			So(built, ShouldBeEmpty)
			So(stdout.String(), ShouldBeEmpty)
		})

		Convey("a pipeline that cannot be built is fatal", func() {
			opts.NewPipeline = func(string) (player.Pipeline, error) { return nil, errors.New("no playbin") }

			_, err := Run(context.Background(), path, opts)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no playbin")
		})

		Convey("a pipeline that refuses to play is fatal and released", func() {
			fake.FailStates(errors.New("state change failed"))

			_, err := Run(context.Background(), path, opts)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Playing")
			So(fake.Closed(), ShouldBeTrue)
			So(stdout.String(), ShouldBeEmpty)
			So(rec.entries, ShouldBeEmpty)
		})
	})
}

func TestCancellable(t *testing.T) {
	Convey("cancellable", t, func() {
		Convey("keeps readers that already cancel", func() {
			r, w := io.Pipe()
			defer w.Close()
			in := pipeInput{r}
			So(cancellable(in), ShouldResemble, in)
		})

		Convey("reads a regular file through to EOF", func() {
			path := filepath.Join(t.TempDir(), "commands")
			So(os.WriteFile(path, []byte("s\nq\n"), 0o644), ShouldBeNil)
			f, err := os.Open(path)
			So(err, ShouldBeNil)
			defer f.Close()

			r := cancellable(f)
			data, err := io.ReadAll(r)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "s\nq\n")
			So(r.Close(), ShouldBeNil)
		})

		Convey("falls back to a plain reader that cannot be interrupted", func() {
			r := uncancellable{bytes.NewBufferString("p\n")}
			So(r.Cancel(), ShouldBeFalse)
			data, err := io.ReadAll(r)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "p\n")
			So(r.Close(), ShouldBeNil)
		})
	})
}

func TestNewPipeline(t *testing.T) {
	Convey("NewPipeline", t, func() {
		Convey("builds an mpv pipeline without starting it", func() {
			p, err := NewPipeline(" MPV ")
			So(err, ShouldBeNil)
			So(p.ID(), ShouldEqual, player.MpvID)
			So(p.CurrentState(), ShouldEqual, player.StateNull)
		})

		Convey("rejects unknown backends", func() {
			_, err := NewPipeline("vlc")
			So(errors.Is(err, player.ErrUnknownBackend), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "vlc")
		})
	})
}

func TestSummaryOutcome(t *testing.T) {
	Convey("Summary.Outcome prefers the bus reason", t, func() {
		So(Summary{Bus: bus.Result{Reason: bus.ReasonEndOfStream}, Transport: transport.OutcomeCanceled}.Outcome(), ShouldEqual, "eos")
		So(Summary{Bus: bus.Result{Reason: bus.ReasonError}}.Outcome(), ShouldEqual, "error")
		So(Summary{Bus: bus.Result{Reason: bus.ReasonCanceled}, Transport: transport.OutcomeQuit}.Outcome(), ShouldEqual, "quit")
		So(Summary{Bus: bus.Result{Reason: bus.ReasonClosed}}.Outcome(), ShouldEqual, "closed")
	})
}
