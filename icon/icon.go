// Package icon renders feedback symbols in the variant chosen by the user.
package icon

import (
	"github.com/spf13/viper"
	"github.com/vidplay-cli/vidplay/key"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	squares = "squares"
)

// AvailableVariants returns all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, squares}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Missing
)

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	squares string
}

func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case squares:
		return d.squares
	default:
		return ""
	}
}

var icons = map[Icon]*iconDef{
	Success:  {emoji: "🎉", nerd: "\uf00c", plain: "✓", squares: "▣"},
	Fail:     {emoji: "💀", nerd: "\uf00d", plain: "✖", squares: "▨"},
	Progress: {emoji: "⏳", nerd: "\uf110", plain: "…", squares: "▧"},
	Missing:  {emoji: "❓", nerd: "\uf128", plain: "?", squares: "□"},
}

// Get returns the rendered string for i.
func Get(i Icon) string {
	return icons[i].Get()
}
