// Package export writes edit decision lists for a timeline.
package export

// Event is one EDL event. Times are in seconds.
type Event struct {
	Reel      string
	Track     string
	ClipName  string
	MediaPath string
	SourceIn  float64
	SourceOut float64
	RecordIn  float64
	RecordOut float64
	Effect    string
}

// Duration returns the length of the event on the record side.
func (e Event) Duration() float64 {
	return e.RecordOut - e.RecordIn
}
