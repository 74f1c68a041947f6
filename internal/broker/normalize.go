package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"aquaponics_monitor/internal/models"
)

// ParseNumber converts a broker value to a float. Empty, null and
// non-numeric values become 0; comma decimals are accepted.
func ParseNumber(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0
		}
		f = p
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		f = parseNumberString(x)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseNumberString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			// 1.234,5
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseBool converts a broker flag. "0"/"false" and zero are false,
// "1"/"true" and nonzero are true, null and blank are false, and any other
// non-empty string is true.
func ParseBool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "0", "false":
			return false
		default:
			return true
		}
	case float64, float32, int, int64, json.Number:
		return ParseNumber(x) != 0
	default:
		return true
	}
}

// FormatBool is the wire form of a flag.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// FormatNumber is the wire form of a number.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ErrInvalidTimerInput is returned for timer text that is not all digits.
var ErrInvalidTimerInput = errors.New("timer must be a whole number of seconds")

var digitsOnly = regexp.MustCompile(`^\d+$`)

// ParseTimerInput parses operator timer text. Blank input returns nil so the
// field stays empty instead of becoming 0.
func ParseTimerInput(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !digitsOnly.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimerInput, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimerInput, s)
	}
	return &n, nil
}

// IsSensorFault reports the disconnected-sensor sentinel.
func IsSensorFault(temp float64) bool {
	return temp == models.TemperatureFault
}

// LevelUnit is how the channel stores the water level.
type LevelUnit string

const (
	LevelPercent  LevelUnit = "percent"
	LevelFraction LevelUnit = "fraction"
)

// ToPercent converts a stored level to the canonical 0-100 percent.
func (u LevelUnit) ToPercent(v float64) float64 {
	if u == LevelFraction {
		return v * 100
	}
	return v
}

// FromPercent converts a canonical percent to the stored unit.
func (u LevelUnit) FromPercent(v float64) float64 {
	if u == LevelFraction {
		return v / 100
	}
	return v
}

// ToReading normalizes an entry into a Reading.
func ToReading(e Entry, unit LevelUnit) models.Reading {
	return models.Reading{
		EntryID:      e.EntryID,
		Temperature:  ParseNumber(e.Value(FieldTemperature)),
		Level:        unit.ToPercent(ParseNumber(e.Value(FieldLevel))),
		PumpStatus:   ParseBool(e.Value(FieldPumpStatus)),
		HeaterStatus: ParseBool(e.Value(FieldHeaterStatus)),
		Timestamp:    e.CreatedAt,
	}
}

// ToDeviceState normalizes the control fields of an entry.
func ToDeviceState(e Entry) models.DeviceState {
	return models.DeviceState{
		PumpStatus:    ParseBool(e.Value(FieldPumpStatus)),
		HeaterStatus:  ParseBool(e.Value(FieldHeaterStatus)),
		OperationMode: ParseBool(e.Value(FieldOperationMode)),
		TargetTemp:    ParseNumber(e.Value(FieldTargetTemp)),
		PumpOnTimer:   int(math.Round(ParseNumber(e.Value(FieldPumpOnTimer)))),
		PumpOffTimer:  int(math.Round(ParseNumber(e.Value(FieldPumpOffTimer)))),
	}
}

// DeviceStateUpdate is the wire form of every control field of st.
func DeviceStateUpdate(st models.DeviceState) Update {
	return Update{
		FieldPumpStatus:    FormatBool(st.PumpStatus),
		FieldHeaterStatus:  FormatBool(st.HeaterStatus),
		FieldOperationMode: FormatBool(st.OperationMode),
		FieldTargetTemp:    FormatNumber(st.TargetTemp),
		FieldPumpOnTimer:   strconv.Itoa(st.PumpOnTimer),
		FieldPumpOffTimer:  strconv.Itoa(st.PumpOffTimer),
	}
}

// ApplyUpdate overlays the control fields present in u onto st.
func ApplyUpdate(st *models.DeviceState, u Update) {
	for f, v := range u {
		if strings.TrimSpace(v) == "" {
			continue
		}
		switch f {
		case FieldPumpStatus:
			st.PumpStatus = ParseBool(v)
		case FieldHeaterStatus:
			st.HeaterStatus = ParseBool(v)
		case FieldOperationMode:
			st.OperationMode = ParseBool(v)
		case FieldTargetTemp:
			st.TargetTemp = ParseNumber(v)
		case FieldPumpOnTimer:
			st.PumpOnTimer = int(math.Round(ParseNumber(v)))
		case FieldPumpOffTimer:
			st.PumpOffTimer = int(math.Round(ParseNumber(v)))
		}
	}
}

// ReadingUpdate is the wire form of a synthetic or recorded reading.
func ReadingUpdate(r models.Reading, unit LevelUnit) Update {
	return Update{
		FieldTemperature:  FormatNumber(r.Temperature),
		FieldLevel:        FormatNumber(unit.FromPercent(r.Level)),
		FieldPumpStatus:   FormatBool(r.PumpStatus),
		FieldHeaterStatus: FormatBool(r.HeaterStatus),
	}
}
