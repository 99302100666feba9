package dashboard

// AutoLayout tiles the top-level panels into equal-width columns of default
// height, left to right and top to bottom, keeping panel order. columns is
// clamped to [1, 24].
func (d *Dashboard) AutoLayout(columns int) {
	if columns < 1 {
		columns = 1
	}
	if columns > GridColumns {
		columns = GridColumns
	}
	width := GridColumns / columns

	for i, p := range d.Panels {
		p.GridPos = GridPos{
			X: (i % columns) * width,
			Y: (i / columns) * DefaultPanelHeight,
			W: width,
			H: DefaultPanelHeight,
		}
	}
}

// HasOverlaps reports whether any two top-level panels overlap.
func (d *Dashboard) HasOverlaps() bool {
	return len(overlappingPairs(d.Panels)) > 0
}
