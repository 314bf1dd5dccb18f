package session

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/vidplay-cli/vidplay/key"
	"github.com/vidplay-cli/vidplay/player"
	"github.com/vidplay-cli/vidplay/player/gstreamer"
)

const (
	BackendGStreamer = "gstreamer"
	BackendMpv       = "mpv"
)

// Backends lists the accepted values of player.backend.
var Backends = []string{BackendGStreamer, BackendMpv}

// Factory builds a pipeline for a backend name.
type Factory func(backend string) (player.Pipeline, error)

// NewPipeline builds the pipeline for backend, case-insensitively.
func NewPipeline(backend string) (player.Pipeline, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendGStreamer:
		return gstreamer.New()
	case BackendMpv:
		return player.NewMPV(viper.GetString(key.PlayerMpvPath)), nil
	default:
		return nil, fmt.Errorf("%w: %q (expected one of %s)", player.ErrUnknownBackend, backend, strings.Join(Backends, ", "))
	}
}
