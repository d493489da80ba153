package model

import "regexp"

// Color is a "#rgb" or "#rrggbb" display color.
type Color string

const (
	ColorBlue   Color = "#3788d8"
	ColorGreen  Color = "#2e9d57"
	ColorPurple Color = "#8e44ad"
	ColorRed    Color = "#d64541"

	DefaultColor = ColorBlue
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Valid reports whether c is a 3- or 6-digit hex color.
func (c Color) Valid() bool {
	return hexColorPattern.MatchString(string(c))
}

// OrDefault returns c, or DefaultColor when c is empty.
func (c Color) OrDefault() Color {
	if c == "" {
		return DefaultColor
	}
	return c
}
