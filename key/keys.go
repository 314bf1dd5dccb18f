// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Playback engine - these keys select and tune the external media pipeline.
const (
	PlayerBackend    = "player.backend"
	PlayerVideoSinks = "player.video_sinks"
	PlayerSeekStep   = "player.seek_step"
	PlayerMpvPath    = "player.mpv_path"
)

// Standard input handling for the transport controls.
const (
	InputCancelOnExit = "input.cancel_on_exit"
)

// Playback history persistence.
const (
	HistorySave  = "history.save"
	HistoryLimit = "history.limit"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment.
const (
	CliColored = "cli.colored"
)
