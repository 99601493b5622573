package models

import (
	"encoding/json"
	"maps"
	"time"
)

// Measurement names produced by the telemetry decoder.
const (
	MeasurementSummary     = "thermostat_summary"
	MeasurementEnvironment = "thermostat_environment"
	MeasurementEquipment   = "thermostat_equipment"
)

// Point is one time-series record. It is immutable: NewPoint copies the maps it
// is given and the accessors hand out copies, so points never share tag sets.
type Point struct {
	measurement string
	tags        map[string]any
	fields      map[string]any
	time        time.Time
}

// NewPoint builds a point from identity tags, optional point-specific tags and fields.
func NewPoint(measurement string, identity map[string]any, tags map[string]any, fields map[string]any, ts time.Time) Point {
	merged := make(map[string]any, len(identity)+len(tags))
	maps.Copy(merged, identity)
	maps.Copy(merged, tags)
	return Point{
		measurement: measurement,
		tags:        merged,
		fields:      maps.Clone(fields),
		time:        ts.UTC(),
	}
}

func (p Point) Measurement() string { return p.measurement }

func (p Point) Tags() map[string]any { return maps.Clone(p.tags) }

func (p Point) Fields() map[string]any { return maps.Clone(p.fields) }

func (p Point) Time() time.Time { return p.time }

// Tag returns a single tag value.
func (p Point) Tag(key string) (any, bool) {
	v, ok := p.tags[key]
	return v, ok
}

// Field returns a single field value.
func (p Point) Field(key string) (any, bool) {
	v, ok := p.fields[key]
	return v, ok
}

type pointJSON struct {
	Measurement string         `json:"measurement"`
	Tags        map[string]any `json:"tags"`
	Fields      map[string]any `json:"fields"`
	Time        time.Time      `json:"time"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{
		Measurement: p.measurement,
		Tags:        p.tags,
		Fields:      p.fields,
		Time:        p.time,
	})
}
