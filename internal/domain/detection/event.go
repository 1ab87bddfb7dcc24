package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/edirooss/zmux-analytics/pkg/ptzgeom"
)

// MetadataField is the stream record field holding the JSON-encoded event.
const MetadataField = "metadata"

// ErrMissingField is wrapped by EventParseError when a required key is absent.
var ErrMissingField = errors.New("missing field")

// EventParseError reports a stream payload that could not be decoded into an Event.
type EventParseError struct {
	Field string // offending field, if known
	Err   error
}

func (e *EventParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("event parse: %v", e.Err)
	}
	return fmt.Sprintf("event parse: %s: %v", e.Field, e.Err)
}

func (e *EventParseError) Unwrap() error { return e.Err }

// BoundingBox is one detected object in frame pixel coordinates.
type BoundingBox struct {
	ptzgeom.Box
	Class string
}

// Event is a single detection read from the stream. It is consumed once and discarded.
type Event struct {
	SensorID    string
	Objects     []BoundingBox
	FrameWidth  int
	FrameHeight int
}

// metadata mirrors the wire shape published by the detection pipeline.
type metadata struct {
	SensorID *string  `json:"sensorId"`
	Objects  []string `json:"objects"`
	Width    *int     `json:"width"`
	Height   *int     `json:"height"`
}

// ParseRecord decodes an event from stream record fields.
func ParseRecord(values map[string]string) (*Event, error) {
	raw, ok := values[MetadataField]
	if !ok {
		return nil, &EventParseError{Field: MetadataField, Err: ErrMissingField}
	}
	return ParseMetadata([]byte(raw))
}

// ParseMetadata decodes the JSON metadata object of a detection event.
// Every encoded object must decode; a single malformed box rejects the event.
func ParseMetadata(raw []byte) (*Event, error) {
	var md metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, &EventParseError{Field: MetadataField, Err: err}
	}

	switch {
	case md.SensorID == nil:
		return nil, &EventParseError{Field: "sensorId", Err: ErrMissingField}
	case md.Width == nil:
		return nil, &EventParseError{Field: "width", Err: ErrMissingField}
	case md.Height == nil:
		return nil, &EventParseError{Field: "height", Err: ErrMissingField}
	}

	ev := &Event{
		SensorID:    *md.SensorID,
		Objects:     make([]BoundingBox, 0, len(md.Objects)),
		FrameWidth:  *md.Width,
		FrameHeight: *md.Height,
	}
	for i, obj := range md.Objects {
		box, err := ParseBoundingBox(obj)
		if err != nil {
			return nil, &EventParseError{Field: fmt.Sprintf("objects[%d]", i), Err: err}
		}
		ev.Objects = append(ev.Objects, box)
	}

	return ev, nil
}

// ParseBoundingBox decodes "left|top|right|bottom|class". Any field may be
// wrapped in square brackets; the class field is optional.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, "|")
	if len(parts) < 4 {
		return BoundingBox{}, fmt.Errorf("bbox %q: want at least 4 fields, got %d", s, len(parts))
	}

	var coords [4]float64
	for i := range coords {
		v, err := strconv.ParseFloat(unwrap(parts[i]), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bbox %q: field %d: %w", s, i, err)
		}
		coords[i] = v
	}

	box := BoundingBox{
		Box: ptzgeom.Box{Left: coords[0], Top: coords[1], Right: coords[2], Bottom: coords[3]},
	}
	if len(parts) > 4 {
		box.Class = unwrap(parts[4])
	}
	return box, nil
}

func unwrap(s string) string {
	return strings.Trim(strings.TrimSpace(s), "[]")
}

// First returns the first detected object, if any.
func (e *Event) First() (BoundingBox, bool) {
	if len(e.Objects) == 0 {
		return BoundingBox{}, false
	}
	return e.Objects[0], true
}
