package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	TrackVideo = "V"
	TrackAudio = "A"
)

// MediaLookup resolves an element's source reference to a file path.
// ok is false when the reference is unknown.
type MediaLookup func(ref string) (path string, ok bool)

// EventsFromElements converts the media elements of a timeline into EDL
// events ordered by record-in. Text elements carry no media and are skipped,
// as are elements whose source cannot be resolved; their ids are returned
// in unresolved.
func EventsFromElements(elements []timeline.Element, lookup MediaLookup) (events []Event, unresolved []string) {
	for _, el := range elements {
		var track string
		switch el.TrackKind {
		case timeline.TrackVideo:
			track = TrackVideo
		case timeline.TrackAudio:
			track = TrackAudio
		default:
			continue
		}

		path := ""
		if lookup != nil {
			p, ok := lookup(el.SourceRef)
			if !ok {
				unresolved = append(unresolved, el.ID)
				continue
			}
			path = p
		}

		ev := Event{
			Reel:      "AX",
			Track:     track,
			ClipName:  el.Name,
			MediaPath: path,
			SourceIn:  el.TrimStart,
			SourceOut: el.TrimStart + el.Duration,
			RecordIn:  el.StartTime,
			RecordOut: el.End(),
		}
		if el.FX != nil && el.FX.Enabled {
			ev.Effect = fmt.Sprintf("FX intensity=%.2f frequency=%.2f zoom=%.2f seed=%d",
				el.FX.Intensity, el.FX.Frequency, el.FX.ZoomFactor, el.FX.RandomSeed)
		} else if el.VisualEffect != "" {
			ev.Effect = el.VisualEffect
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].RecordIn != events[j].RecordIn {
			return events[i].RecordIn < events[j].RecordIn
		}
		return events[i].Track == TrackVideo && events[j].Track != TrackVideo
	})
	return events, unresolved
}

// GenerateEDL renders events as a CMX3600 edit decision list.
func GenerateEDL(events []Event, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, ev := range events {
		reel := ev.Reel
		if reel == "" {
			reel = "AX"
		}
		track := ev.Track
		if track == "" {
			track = TrackVideo
		}

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, reel, track,
				secondsToTimecode(ev.SourceIn, fps), secondsToTimecode(ev.SourceOut, fps),
				secondsToTimecode(ev.RecordIn, fps), secondsToTimecode(ev.RecordOut, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", ev.ClipName),
		)
		if ev.MediaPath != "" {
			lines = append(lines, fmt.Sprintf("* MEDIA PATH:  %s", ev.MediaPath))
		}
		if ev.Effect != "" {
			lines = append(lines, fmt.Sprintf("* EFFECT:  %s", ev.Effect))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func secondsToTimecode(sec float64, fps int) string {
	if sec < 0 {
		sec = 0
	}
	totalFrames := int(math.Round(sec * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
