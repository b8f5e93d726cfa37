package diff

import (
	"github.com/fatih/color"
)

// palette holds the styles used by the renderers. A nil *color.Color renders text unchanged.
type palette struct {
	header   *color.Color
	location *color.Color
	gutter   *color.Color
	deleted  *color.Color
	added    *color.Color
	faint    *color.Color
}

func newPalette(enabled bool) palette {
	if !enabled {
		return palette{}
	}
	return palette{
		header:   forced(color.Bold, color.FgCyan),
		location: forced(color.FgMagenta),
		gutter:   forced(color.Faint),
		deleted:  forced(color.FgRed),
		added:    forced(color.FgGreen),
		faint:    forced(color.Faint),
	}
}

// forced returns a color that emits escapes regardless of whether stdout is a terminal; callers decide that.
func forced(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

func paint(c *color.Color, s string) string {
	if c == nil {
		return s
	}
	return c.Sprint(s)
}
