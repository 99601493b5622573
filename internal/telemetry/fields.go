package telemetry

import "strings"

// fieldClass says how an extended runtime array is converted and which point it lands in.
type fieldClass int

const (
	classTemperature fieldClass = iota // tenths of a degree
	classInteger
	classString
	classEquipmentSeconds
)

type extendedField struct {
	class fieldClass
	name  string // field name on the emitted point
}

// extendedRuntimeFields classifies every array carried by extendedRuntime.
// A key that is neither here nor in ignoredExtendedKeys fails the decode.
var extendedRuntimeFields = map[string]extendedField{
	"actualTemperature": {classTemperature, "temperature"},
	"desiredHeat":       {classTemperature, "desired_heat"},
	"desiredCool":       {classTemperature, "desired_cool"},
	"dmOffset":          {classTemperature, "demand_offset"},

	"actualHumidity":    {classInteger, "humidity"},
	"desiredHumidity":   {classInteger, "desired_humidity"},
	"desiredDehumidity": {classInteger, "desired_dehumidity"},

	"hvacMode": {classString, "hvac_mode"},

	"heatPump1":    equipment("heatPump1"),
	"heatPump2":    equipment("heatPump2"),
	"auxHeat1":     equipment("auxHeat1"),
	"auxHeat2":     equipment("auxHeat2"),
	"auxHeat3":     equipment("auxHeat3"),
	"cool1":        equipment("cool1"),
	"cool2":        equipment("cool2"),
	"fan":          equipment("fan"),
	"humidifier":   equipment("humidifier"),
	"dehumidifier": equipment("dehumidifier"),
	"economizer":   equipment("economizer"),
	"ventilator":   equipment("ventilator"),
}

// ignoredExtendedKeys are housekeeping entries. The electricity bill fields are
// not parsed yet.
var ignoredExtendedKeys = map[string]struct{}{
	"lastReadingTimestamp":     {},
	"runtimeDate":              {},
	"runtimeInterval":          {},
	"currentElectricityBill":   {},
	"projectedElectricityBill": {},
}

func equipment(key string) extendedField {
	return extendedField{classEquipmentSeconds, "runtime_" + strings.ToLower(key)}
}
