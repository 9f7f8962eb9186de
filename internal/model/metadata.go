package model

import "github.com/dyuri/zoneconv/internal/geometry"

// PrintInfo is the page setup stored in the auxiliary container
type PrintInfo struct {
	PaperWidth  float64
	PaperHeight float64
	Margins     [4]float64 // top, left, bottom, right
	Landscape   bool
}

// Metadata collects the auxiliary container records that were readable.
type Metadata struct {
	Print  *PrintInfo
	Window *geometry.Rect
	Labels []string
}
