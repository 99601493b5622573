package models

import "encoding/json"

// StatusTokenExpired is the vendor status code reported when the access token has expired.
const StatusTokenExpired = 14

// Status is the status block the vendor attaches to data responses.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Page describes the pagination of a listing response.
type Page struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
}

// Selection is the thermostat selection object sent with listing requests.
type Selection struct {
	SelectionType          string `json:"selectionType"`
	SelectionMatch         string `json:"selectionMatch"`
	IncludeRuntime         bool   `json:"includeRuntime"`
	IncludeExtendedRuntime bool   `json:"includeExtendedRuntime"`
	IncludeSensors         bool   `json:"includeSensors"`
	IncludeEquipmentStatus bool   `json:"includeEquipmentStatus"`
	IncludeEvents          bool   `json:"includeEvents"`
	IncludeDevice          bool   `json:"includeDevice"`
	IncludeWeather         bool   `json:"includeWeather"`
	IncludeProgram         bool   `json:"includeProgram"`
}

// TelemetrySelection selects every registered thermostat with the blocks the decoder reads.
func TelemetrySelection() Selection {
	return Selection{
		SelectionType:          "registered",
		IncludeRuntime:         true,
		IncludeExtendedRuntime: true,
		IncludeSensors:         true,
	}
}

// ThermostatListing is the body of a thermostat listing response. Each thermostat
// is kept raw; decoding is left to the telemetry package.
type ThermostatListing struct {
	Page           *Page             `json:"page,omitempty"`
	ThermostatList []json.RawMessage `json:"thermostatList"`
	Status         Status            `json:"status"`
}
