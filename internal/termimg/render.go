// Package termimg draws images in a terminal with half-block characters.
package termimg

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const halfBlock = "▀"

// Render scales img to cols×rows terminal cells. Each cell shows two vertical
// pixels: the top one as foreground, the bottom one as background. opacity
// blends every pixel towards black. A nil image renders as blank cells.
func Render(img image.Image, cols, rows int, opacity float64) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	if img == nil {
		line := strings.Repeat(" ", cols)
		lines := make([]string, rows)
		for i := range lines {
			lines[i] = line
		}
		return strings.Join(lines, "\n")
	}

	b := img.Bounds()
	pxRows := rows * 2

	var sb strings.Builder
	for row := range rows {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := range cols {
			x := b.Min.X + col*b.Dx()/cols
			yTop := b.Min.Y + (row*2)*b.Dy()/pxRows
			yBottom := b.Min.Y + (row*2+1)*b.Dy()/pxRows

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(Hex(img.At(x, yTop), opacity))).
				Background(lipgloss.Color(Hex(img.At(x, yBottom), opacity)))
			sb.WriteString(style.Render(halfBlock))
		}
	}
	return sb.String()
}

// Size returns the largest cols×rows that fits within maxCols×maxRows while
// keeping the image's aspect ratio (a cell is two pixels tall).
func Size(img image.Image, maxCols, maxRows int) (cols, rows int) {
	if img == nil || maxCols <= 0 || maxRows <= 0 {
		return maxCols, maxRows
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return maxCols, maxRows
	}

	cols = maxCols
	rows = cols * h / w / 2
	if rows > maxRows {
		rows = maxRows
		cols = rows * 2 * w / h
	}
	return max(cols, 1), max(rows, 1)
}

// Hex formats c, scaled by opacity, as #rrggbb.
func Hex(c color.Color, opacity float64) string {
	r, g, b, _ := c.RGBA()
	scale := func(v uint32) uint8 {
		return uint8(float64(v>>8) * opacity)
	}
	return fmt.Sprintf("#%02x%02x%02x", scale(r), scale(g), scale(b))
}
