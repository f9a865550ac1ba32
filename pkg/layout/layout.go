// Package layout positions schedule entries on a half-hour grid. Overlapping
// entries are split into side-by-side columns so no two entries in the same
// column collide.
//
// Everything in this package is a pure function of its input: a fresh layout
// is computed whenever the visible entries change.
package layout

// Placement is everything a renderer needs to absolutely position an item.
type Placement struct {
	RowStart     int
	RowSpan      float64
	LeftPercent  float64
	WidthPercent float64

	GroupIndex int
	Column     int
	GroupWidth int
	// Rollover is set when the start hour was before baseHour and the item
	// was pushed to the following night.
	Rollover bool
}

// Arrange computes a Placement for every item, aligned with the input slice.
func Arrange(items []Item, baseHour int) []Placement {
	assignments := Assign(items)
	placements := make([]Placement, len(items))
	for i, item := range items {
		a := assignments[i]
		width := 100 / float64(a.GroupWidth)
		_, rolled := rolledHour(item.Start, baseHour)
		placements[i] = Placement{
			RowStart:     RowIndex(item.Start, baseHour),
			RowSpan:      RowSpan(item.Start, item.End),
			LeftPercent:  width * float64(a.Column),
			WidthPercent: width,
			GroupIndex:   a.GroupIndex,
			Column:       a.Column,
			GroupWidth:   a.GroupWidth,
			Rollover:     rolled,
		}
	}
	return placements
}

// Layout computes placements keyed by item ID. When ids repeat, the last
// item with that id wins.
func Layout(items []Item, baseHour int) map[string]Placement {
	placements := Arrange(items, baseHour)
	byId := make(map[string]Placement, len(items))
	for i, item := range items {
		byId[item.ID] = placements[i]
	}
	return byId
}
