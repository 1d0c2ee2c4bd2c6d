package shiori

import (
	"errors"

	"github.com/gookit/color"
)

var (
	version   = "dev"     // overridden at build time
	buildDate = "unknown" // overridden at build time

	ConfigFile  = "/etc/shiori.conf"
	MakepkgConf = "/etc/makepkg.conf"

	// ErrAborted is returned when the user quits an interactive menu.
	ErrAborted = errors.New("aborted by user")
)

// color helpers
var (
	colInfo    = color.Info
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
