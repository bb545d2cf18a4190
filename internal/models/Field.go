package models

import "strings"

// Field is the canonical name of a measured quantity.
type Field string

const (
	FieldPH              Field = "ph"
	FieldTemperature     Field = "temperature_c"
	FieldTurbidity       Field = "turbidity_ntu"
	FieldTDS             Field = "tds_ppm"
	FieldDissolvedOxygen Field = "dissolved_oxygen"
)

// Fields lists every measured quantity in canonical order.
var Fields = []Field{FieldPH, FieldTemperature, FieldTurbidity, FieldTDS, FieldDissolvedOxygen}

// aliases are keyed in lower case; lookups fold the input first.
var aliases = map[string]Field{
	"ph":               FieldPH,
	"temperature":      FieldTemperature,
	"temp":             FieldTemperature,
	"temperature_c":    FieldTemperature,
	"turbidity":        FieldTurbidity,
	"turb":             FieldTurbidity,
	"turbidity_ntu":    FieldTurbidity,
	"tds":              FieldTDS,
	"tds_ppm":          FieldTDS,
	"do":               FieldDissolvedOxygen,
	"dissolvedoxygen":  FieldDissolvedOxygen,
	"dissolved_oxygen": FieldDissolvedOxygen,
}

// FieldByAlias resolves any recognized spelling of a measurement key.
func FieldByAlias(name string) (Field, bool) {
	f, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

func (f Field) Valid() bool {
	switch f {
	case FieldPH, FieldTemperature, FieldTurbidity, FieldTDS, FieldDissolvedOxygen:
		return true
	}
	return false
}
