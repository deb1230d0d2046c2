package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementFrame = "lux_frame"
	MeasurementEvent = "lux_event"
)

// FrameSample is the per-frame telemetry the runner extracts from an
// intent. Low-cardinality strings become tags, everything else fields.
type FrameSample struct {
	VibeID   string
	Key      string
	Emotion  string
	Strategy string
	Source   string

	Energy          float64
	RawEnergy       float64
	MasterIntensity float64
	Strobe          float64
	PrimaryHue      float64
	BPM             float64
	DropActive      bool
	Effects         int
	Frame           uint64

	At time.Time
}

// WriteFrame queues one frame sample.
func (c *Client) WriteFrame(s FrameSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(framePoint(c.showID, s))
}

// WriteEvent queues one show event. Field values that are not numbers,
// bools or strings are stored in their %v form.
func (c *Client) WriteEvent(kind, vibeID string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(eventPoint(c.showID, kind, vibeID, fields, at))
}

func framePoint(showID string, s FrameSample) *write.Point {
	tags := map[string]string{
		"show":     showID,
		"vibe":     s.VibeID,
		"key":      s.Key,
		"emotion":  s.Emotion,
		"strategy": s.Strategy,
		"source":   s.Source,
	}
	fields := map[string]any{
		"energy":           s.Energy,
		"raw_energy":       s.RawEnergy,
		"master_intensity": s.MasterIntensity,
		"strobe":           s.Strobe,
		"primary_hue":      s.PrimaryHue,
		"bpm":              s.BPM,
		"drop_active":      s.DropActive,
		"effects":          s.Effects,
		"frame":            s.Frame,
	}
	return write.NewPoint(MeasurementFrame, dropEmpty(tags), fields, stamp(s.At))
}

func eventPoint(showID, kind, vibeID string, fields map[string]any, at time.Time) *write.Point {
	tags := map[string]string{
		"show": showID,
		"kind": kind,
		"vibe": vibeID,
	}
	// A point needs at least one field.
	f := map[string]any{"count": 1}
	for k, v := range fields {
		if k == "count" {
			continue
		}
		f[k] = v
	}
	return write.NewPoint(MeasurementEvent, dropEmpty(tags), f, stamp(at))
}

// dropEmpty removes empty tag values, which line protocol rejects.
func dropEmpty(tags map[string]string) map[string]string {
	for k, v := range tags {
		if v == "" {
			delete(tags, k)
		}
	}
	return tags
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
