package broker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field is a numbered ThingSpeak channel field.
type Field int

const (
	FieldTemperature Field = iota + 1
	FieldLevel
	FieldPumpStatus
	FieldHeaterStatus
	FieldOperationMode
	FieldTargetTemp
	FieldPumpOnTimer
	FieldPumpOffTimer
)

// AllFields lists the channel fields in wire order.
var AllFields = []Field{
	FieldTemperature, FieldLevel, FieldPumpStatus, FieldHeaterStatus,
	FieldOperationMode, FieldTargetTemp, FieldPumpOnTimer, FieldPumpOffTimer,
}

// Key is the wire name, e.g. "field3".
func (f Field) Key() string {
	return "field" + strconv.Itoa(int(f))
}

func (f Field) String() string {
	switch f {
	case FieldTemperature:
		return "temperature"
	case FieldLevel:
		return "level"
	case FieldPumpStatus:
		return "pumpStatus"
	case FieldHeaterStatus:
		return "heaterStatus"
	case FieldOperationMode:
		return "operationMode"
	case FieldTargetTemp:
		return "targetTemp"
	case FieldPumpOnTimer:
		return "pumpOnTimer"
	case FieldPumpOffTimer:
		return "pumpOffTimer"
	}
	return f.Key()
}

// thingspeak timestamps are RFC3339 in UTC
const createdAtLayout = time.RFC3339

// Entry is one channel entry. Fields holds raw decoded JSON values
// (string, float64, nil) exactly as the broker sent them.
type Entry struct {
	EntryID   int64
	CreatedAt time.Time
	Fields    map[Field]any
}

// Value returns the raw value of f, nil when absent.
func (e Entry) Value(f Field) any {
	if e.Fields == nil {
		return nil
	}
	return e.Fields[f]
}

// Has reports whether f carries a non-null, non-blank value.
func (e Entry) Has(f Field) bool {
	v := e.Value(f)
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// HasSensor reports whether e carries a temperature or level sample.
func (e Entry) HasSensor() bool {
	return e.Has(FieldTemperature) || e.Has(FieldLevel)
}

// UnmarshalJSON decodes the ThingSpeak feed entry shape.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Fields = make(map[Field]any, len(AllFields))

	if v, ok := raw["entry_id"]; ok {
		var id any
		if err := json.Unmarshal(v, &id); err != nil {
			return fmt.Errorf("decode entry_id: %w", err)
		}
		e.EntryID = int64(ParseNumber(id))
	}
	if v, ok := raw["created_at"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil && s != "" {
			ts, err := time.Parse(createdAtLayout, s)
			if err != nil {
				return fmt.Errorf("decode created_at %q: %w", s, err)
			}
			e.CreatedAt = ts.UTC()
		}
	}
	for _, f := range AllFields {
		v, ok := raw[f.Key()]
		if !ok {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("decode %s: %w", f.Key(), err)
		}
		e.Fields[f] = val
	}
	return nil
}

// MarshalJSON encodes the entry in the ThingSpeak feed shape.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"entry_id": e.EntryID,
	}
	if !e.CreatedAt.IsZero() {
		out["created_at"] = e.CreatedAt.UTC().Format(createdAtLayout)
	}
	for _, f := range AllFields {
		out[f.Key()] = e.Value(f)
	}
	return json.Marshal(out)
}
