package stacker

import (
	"strings"

	"github.com/spatialbytes/neonstack/core"
)

// FieldType is the resolved column type of one published field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldFloat
	FieldInt
	FieldTimestamp
	FieldDate
)

func (t FieldType) duckdbType() string {
	switch t {
	case FieldFloat:
		return "DOUBLE"
	case FieldInt:
		return "BIGINT"
	case FieldTimestamp:
		return "TIMESTAMP"
	case FieldDate:
		return "DATE"
	}
	return "VARCHAR"
}

// FieldSchema is one row of the variables file.
type FieldSchema struct {
	Table       string
	FieldName   string
	Description string
	DataType    string
	Units       string
	DownloadPkg string
	PubFormat   string
}

// Column is one typed column of a table schema.
type Column struct {
	Name string
	Type FieldType
}

// TableSchema is the ordered column set for one (table, package) pair.
type TableSchema []Column

// fieldType translates a variables-file (dataType, pubFormat) pair into a
// column type. Timestamps resolve to second precision UTC; year-only
// dateTimes to integers; unrecognized dateTime formats degrade to string.
func fieldType(dataType, pubFormat string) FieldType {
	switch dataType {
	case "real":
		return FieldFloat
	case "integer", "unsigned integer", "signed integer":
		return FieldInt
	case "string", "uri":
		return FieldString
	case "dateTime":
		switch pubFormat {
		case "yyyy-MM-dd'T'HH:mm:ss'Z'(floor)", "yyyy-MM-dd'T'HH:mm:ss'Z'", "yyyy-MM-dd'T'HH:mm:ss'Z'(round)":
			return FieldTimestamp
		case "yyyy-MM-dd(floor)", "yyyy-MM-dd":
			return FieldDate
		case "yyyy(floor)", "yyyy(round)":
			return FieldInt
		default:
			return FieldString
		}
	}
	return FieldString
}

// Variables wraps the parsed variables file and answers schema lookups.
type Variables struct {
	rows []FieldSchema
}

// VariablesFromTable builds a Variables lookup from the stacked variables
// table, which is read all-string.
func VariablesFromTable(t *core.Table) *Variables {
	v := &Variables{}
	for _, row := range t.Rows {
		v.rows = append(v.rows, FieldSchema{
			Table:       str(row["table"]),
			FieldName:   str(row["fieldName"]),
			Description: str(row["description"]),
			DataType:    str(row["dataType"]),
			Units:       str(row["units"]),
			DownloadPkg: str(row["downloadPkg"]),
			PubFormat:   str(row["pubFormat"]),
		})
	}
	return v
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Rows returns the raw field rows.
func (v *Variables) Rows() []FieldSchema {
	return v.rows
}

// HasTable reports whether any field row belongs to the named table.
func (v *Variables) HasTable(table string) bool {
	for _, r := range v.rows {
		if r.Table == table {
			return true
		}
	}
	return false
}

// Append adds field rows, used to patch in the internal schemas for tables
// the published variables file omits.
func (v *Variables) Append(rows []FieldSchema) {
	v.rows = append(v.rows, rows...)
}

// FieldsFor returns the variables rows for one (table, package) pair,
// falling back to the _pub-suffixed table name when the plain name has no
// rows. A basic-package request filters out expanded-only fields.
func (v *Variables) FieldsFor(table, pkg string) []FieldSchema {
	rows := v.tableRows(table)
	if len(rows) == 0 {
		rows = v.tableRows(table + "_pub")
	}
	if pkg != "basic" {
		return rows
	}
	var basic []FieldSchema
	for _, r := range rows {
		if r.DownloadPkg == "basic" {
			basic = append(basic, r)
		}
	}
	return basic
}

func (v *Variables) tableRows(table string) []FieldSchema {
	var rows []FieldSchema
	for _, r := range v.rows {
		if r.Table == table {
			rows = append(rows, r)
		}
	}
	return rows
}

// Schema resolves the typed column schema for one (table, package) pair.
// sensor_positions bypasses the published variables file: its schema has
// changed across publication eras in ways the variables file does not
// capture, so a fixed internal schema covering both eras is used. A nil
// schema means no field rows were found and types must be inferred.
func (v *Variables) Schema(table, pkg string) TableSchema {
	var rows []FieldSchema
	if table == "sensor_positions" {
		rows = sensorPositionsVariables
	} else {
		rows = v.FieldsFor(table, pkg)
	}
	if len(rows) == 0 {
		return nil
	}
	schema := make(TableSchema, 0, len(rows))
	for _, r := range rows {
		schema = append(schema, Column{Name: r.FieldName, Type: fieldType(r.DataType, r.PubFormat)})
	}
	return schema
}

const (
	pubFormatTimestamp = "yyyy-MM-dd'T'HH:mm:ss'Z'"
	pubFormatDate      = "yyyy-MM-dd"
)

func sensorField(name, description, dataType, pubFormat string) FieldSchema {
	return FieldSchema{
		Table:       "sensor_positions",
		FieldName:   name,
		Description: description,
		DataType:    dataType,
		DownloadPkg: "all",
		PubFormat:   pubFormat,
	}
}

// sensorPositionsVariables covers both publication eras of the sensor
// positions table: current field names plus the legacy names they replaced.
// The legacy columns are reconciled and dropped during assembly.
var sensorPositionsVariables = []FieldSchema{
	sensorField("HOR.VER", "Horizontal and vertical index of sensor position", "string", ""),
	sensorField("sensorLocationID", "Identifier of sensor location", "string", ""),
	sensorField("sensorLocationDescription", "Description of sensor location", "string", ""),
	sensorField("positionStartDateTime", "Start date of sensor position", "dateTime", pubFormatTimestamp),
	sensorField("positionEndDateTime", "End date of sensor position", "dateTime", pubFormatTimestamp),
	sensorField("referenceLocationID", "Identifier of reference location", "string", ""),
	sensorField("referenceLocationIDDescription", "Description of reference location", "string", ""),
	sensorField("referenceLocationIDStartDateTime", "Start date of reference location", "dateTime", pubFormatTimestamp),
	sensorField("referenceLocationIDEndDateTime", "End date of reference location", "dateTime", pubFormatTimestamp),
	sensorField("xOffset", "East offset of sensor from reference location", "real", ""),
	sensorField("yOffset", "North offset of sensor from reference location", "real", ""),
	sensorField("zOffset", "Vertical offset of sensor from reference location", "real", ""),
	sensorField("pitch", "Pitch angle of sensor", "real", ""),
	sensorField("roll", "Roll angle of sensor", "real", ""),
	sensorField("azimuth", "Azimuth angle of sensor", "real", ""),
	sensorField("locationReferenceLatitude", "Latitude of reference location", "real", ""),
	sensorField("locationReferenceLongitude", "Longitude of reference location", "real", ""),
	sensorField("locationReferenceElevation", "Elevation of reference location", "real", ""),
	sensorField("eastOffset", "East offset of sensor from reference location", "real", ""),
	sensorField("northOffset", "North offset of sensor from reference location", "real", ""),
	sensorField("xAzimuth", "Azimuth of the x axis of the sensor", "real", ""),
	sensorField("yAzimuth", "Azimuth of the y axis of the sensor", "real", ""),
	// legacy era
	sensorField("name", "Identifier of sensor location", "string", ""),
	sensorField("description", "Description of sensor location", "string", ""),
	sensorField("start", "Start date of sensor position", "dateTime", pubFormatTimestamp),
	sensorField("end", "End date of sensor position", "dateTime", pubFormatTimestamp),
	sensorField("referenceName", "Identifier of reference location", "string", ""),
	sensorField("referenceDescription", "Description of reference location", "string", ""),
	sensorField("referenceStart", "Start date of reference location", "dateTime", pubFormatTimestamp),
	sensorField("referenceEnd", "End date of reference location", "dateTime", pubFormatTimestamp),
	sensorField("referenceLatitude", "Latitude of reference location", "real", ""),
	sensorField("referenceLongitude", "Longitude of reference location", "real", ""),
	sensorField("referenceElevation", "Elevation of reference location", "real", ""),
}

func srfField(name, description, dataType, pubFormat string) FieldSchema {
	return FieldSchema{
		Table:       "science_review_flags",
		FieldName:   name,
		Description: description,
		DataType:    dataType,
		DownloadPkg: "expanded",
		PubFormat:   pubFormat,
	}
}

// scienceReviewVariables backfills the science_review_flags schema when the
// published variables file predates the table.
var scienceReviewVariables = []FieldSchema{
	srfField("startDateTime", "Start date and time of flagged period", "dateTime", pubFormatTimestamp),
	srfField("endDateTime", "End date and time of flagged period", "dateTime", pubFormatTimestamp),
	srfField("measurementStream", "Identifier of measurement stream flagged", "string", ""),
	srfField("srfID", "Unique identifier of science review flag record", "integer", ""),
	srfField("createDateTime", "Date and time of flag creation", "dateTime", pubFormatTimestamp),
	srfField("lastUpdateDateTime", "Date and time of most recent flag update", "dateTime", pubFormatTimestamp),
	srfField("userComment", "Comment describing the data quality concern", "string", ""),
	srfField("userFlag", "Flag value applied by science review", "integer", ""),
}

// legacySensorColumns maps legacy sensor_positions column names to their
// current replacements.
var legacySensorColumns = map[string]string{
	"name":                 "sensorLocationID",
	"description":          "sensorLocationDescription",
	"start":                "positionStartDateTime",
	"end":                  "positionEndDateTime",
	"referenceName":        "referenceLocationID",
	"referenceDescription": "referenceLocationIDDescription",
	"referenceStart":       "referenceLocationIDStartDateTime",
	"referenceEnd":         "referenceLocationIDEndDateTime",
	"referenceLatitude":    "locationReferenceLatitude",
	"referenceLongitude":   "locationReferenceLongitude",
	"referenceElevation":   "locationReferenceElevation",
}

// variablesColumns is the column order of the stacked variables output.
var variablesColumns = []string{
	"table", "fieldName", "description", "dataType", "units",
	"downloadPkg", "pubFormat",
}

func variablesTable(rows []FieldSchema) *core.Table {
	t := core.NewTable(variablesColumns)
	for _, r := range rows {
		t.Rows = append(t.Rows, map[string]any{
			"table":       r.Table,
			"fieldName":   r.FieldName,
			"description": r.Description,
			"dataType":    r.DataType,
			"units":       r.Units,
			"downloadPkg": r.DownloadPkg,
			"pubFormat":   r.PubFormat,
		})
	}
	return t
}

// normalizePkg keeps package names closed over the two published tiers.
func normalizePkg(pkg string) string {
	if strings.EqualFold(pkg, "expanded") {
		return "expanded"
	}
	return "basic"
}
