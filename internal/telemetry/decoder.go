// Package telemetry turns raw thermostat objects from the listing endpoint into
// time-series points.
//
// Every timestamp is derived from the thermostat's utcTime (or the extended
// runtime reading time, which the vendor also reports in UTC). The thermostat's
// local clock is never used because its time zone is not known.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

const (
	samplesPerReading = 3
	sampleSpacing     = 5 * time.Minute
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
}

// DecodeError reports a snapshot that does not have the expected shape.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	errMissing = errors.New("missing required key")
	errUnknown = errors.New("unclassified field")
)

// Decoder converts thermostat snapshots into points. It keeps no state.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode returns the summary point(s) followed by the environment and
// equipment points of each extended runtime sample, oldest first.
func (d *Decoder) Decode(raw json.RawMessage) ([]models.Point, error) {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &DecodeError{Field: "thermostat", Err: err}
	}

	identity, err := identityTags(obj)
	if err != nil {
		return nil, err
	}

	utcTime, err := obj.time("utcTime")
	if err != nil {
		return nil, err
	}
	lastModified, err := obj.time("lastModified")
	if err != nil {
		return nil, err
	}

	points := []models.Point{
		models.NewPoint(models.MeasurementSummary, identity, nil, map[string]any{
			"config_mod_delta": utcTime.Sub(lastModified).Seconds(),
		}, utcTime),
	}

	if rt, ok, err := obj.child("runtime"); err != nil {
		return nil, err
	} else if ok {
		fields, err := runtimeFields(rt, utcTime)
		if err != nil {
			return nil, err
		}
		points = append(points, models.NewPoint(models.MeasurementSummary, identity, nil, fields, utcTime))
	}

	if ert, ok, err := obj.child("extendedRuntime"); err != nil {
		return nil, err
	} else if ok {
		samples, err := extendedRuntimePoints(ert, identity)
		if err != nil {
			return nil, err
		}
		points = append(points, samples...)
	}

	// remoteSensors is accepted but produces no points yet.

	return points, nil
}

func identityTags(obj object) (map[string]any, error) {
	tags := make(map[string]any, 6)
	for _, key := range []struct{ src, tag string }{
		{"identifier", "identifier"},
		{"name", "name"},
		{"thermostatRev", "revision"},
		{"modelNumber", "model"},
		{"brand", "brand"},
	} {
		v, err := obj.string(key.src)
		if err != nil {
			return nil, err
		}
		tags[key.tag] = v
	}

	registered, err := obj.bool("isRegistered")
	if err != nil {
		return nil, err
	}
	tags["registered"] = registered
	return tags, nil
}

// runtimeFields computes connection bookkeeping relative to utcTime, in seconds.
func runtimeFields(rt object, utcTime time.Time) (map[string]any, error) {
	fields := make(map[string]any, 7)

	for _, key := range []struct{ src, field string }{
		{"firstConnected", "first_connected_delta"},
		{"disconnectDateTime", "last_disconnect_delta"},
		{"connectDateTime", "last_connect_delta"},
		{"lastModified", "config_update_delta"},
		{"lastStatusModified", "status_update_delta"},
	} {
		s, err := rt.string(key.src)
		if err != nil {
			return nil, prefix("runtime", err)
		}
		// an empty date means the event never happened
		if s == "" {
			continue
		}
		t, err := parseTime(s)
		if err != nil {
			return nil, &DecodeError{Field: "runtime." + key.src, Err: err}
		}
		fields[key.field] = utcTime.Sub(t).Seconds()
	}

	connected, err := rt.bool("connected")
	if err != nil {
		return nil, prefix("runtime", err)
	}
	fields["connected"] = connected

	rev, err := rt.string("runtimeRev")
	if err != nil {
		return nil, prefix("runtime", err)
	}
	fields["runtime_revision"] = rev

	return fields, nil
}

func extendedRuntimePoints(ert object, identity map[string]any) ([]models.Point, error) {
	last, err := ert.time("lastReadingTimestamp")
	if err != nil {
		return nil, prefix("extendedRuntime", err)
	}

	var env, equip [samplesPerReading]map[string]any
	for i := 0; i < samplesPerReading; i++ {
		env[i] = make(map[string]any)
		equip[i] = make(map[string]any)
	}

	// every classified array is required; a partial sample would emit points
	// with no fields
	for _, key := range sortedKeys(extendedRuntimeFields) {
		if _, ok := ert[key]; !ok {
			return nil, &DecodeError{Field: "extendedRuntime." + key, Err: errMissing}
		}
	}

	// sorted so the first unknown key reported is deterministic
	keys := sortedKeys(ert)

	for _, key := range keys {
		if _, skip := ignoredExtendedKeys[key]; skip {
			continue
		}
		def, ok := extendedRuntimeFields[key]
		if !ok {
			return nil, &DecodeError{Field: "extendedRuntime." + key, Err: errUnknown}
		}

		values, err := sampleValues(ert[key], def.class)
		if err != nil {
			return nil, &DecodeError{Field: "extendedRuntime." + key, Err: err}
		}

		target := &env
		if def.class == classEquipmentSeconds {
			target = &equip
		}
		for i, v := range values {
			target[i][def.name] = v
		}
	}

	points := make([]models.Point, 0, 2*samplesPerReading)
	for i := 0; i < samplesPerReading; i++ {
		ts := last.Add(-time.Duration(samplesPerReading-1-i) * sampleSpacing)
		points = append(points,
			models.NewPoint(models.MeasurementEnvironment, identity, nil, env[i], ts),
			models.NewPoint(models.MeasurementEquipment, identity, nil, equip[i], ts),
		)
	}
	return points, nil
}

// sampleValues decodes one three-element array and normalises its units.
func sampleValues(raw json.RawMessage, class fieldClass) ([samplesPerReading]any, error) {
	var out [samplesPerReading]any

	if class == classString {
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return out, err
		}
		if len(values) != samplesPerReading {
			return out, fmt.Errorf("expected %d samples, got %d", samplesPerReading, len(values))
		}
		for i, v := range values {
			out[i] = v
		}
		return out, nil
	}

	var values []int64
	if err := json.Unmarshal(raw, &values); err != nil {
		return out, err
	}
	if len(values) != samplesPerReading {
		return out, fmt.Errorf("expected %d samples, got %d", samplesPerReading, len(values))
	}
	for i, v := range values {
		if class == classTemperature {
			out[i] = float64(v) / 10
		} else {
			out[i] = v
		}
	}
	return out, nil
}

// parseTime reads a vendor timestamp as UTC. Any zone offset is dropped.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func prefix(parent string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return &DecodeError{Field: parent + "." + de.Field, Err: de.Err}
	}
	return err
}
