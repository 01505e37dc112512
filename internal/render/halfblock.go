package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const upperHalf = "▀"

// HalfBlocks turns an image into terminal lines, two pixel rows per line:
// the upper half block takes the top pixel as foreground and the bottom
// pixel as background. Runs of identical cells share one style.
func HalfBlocks(img image.Image) []string {
	b := img.Bounds()
	lines := make([]string, 0, (b.Dy()+1)/2)
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		var line strings.Builder
		var run int
		var runTop, runBottom string
		flush := func() {
			if run == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(runTop)).
				Background(lipgloss.Color(runBottom))
			line.WriteString(style.Render(strings.Repeat(upperHalf, run)))
			run = 0
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := hex(img.At(x, y))
			bottom := top
			if y+1 < b.Max.Y {
				bottom = hex(img.At(x, y+1))
			}
			if run > 0 && (top != runTop || bottom != runBottom) {
				flush()
			}
			runTop, runBottom = top, bottom
			run++
		}
		flush()
		lines = append(lines, line.String())
	}
	return lines
}

func hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
