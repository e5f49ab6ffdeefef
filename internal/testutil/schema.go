// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"time"

	"github.com/roach88/filtex/internal/schema"
)

// Declaration returns the schema used across package tests.
//
// Fields:
//
//	Value, Value1, Value2  string
//	NumberField            number, nullable (label "Number Field")
//	Flag                   boolean, lookup Enabled/Disabled
//	Status                 string, lookup Active/Inactive
//	start_date             date (label "Start Date")
//	duration               time (label "Duration")
//	created_at             datetime, nullable (label "Created At")
//	tags                   string array (label "Tags")
func Declaration() schema.Declaration {
	return schema.Declaration{
		Fields: []schema.FieldDeclaration{
			{Name: "Value", Label: "Value", Type: "string"},
			{Name: "Value1", Label: "Value1", Type: "string"},
			{Name: "Value2", Label: "Value2", Type: "string"},
			{Name: "NumberField", Label: "Number Field", Type: "number", Nullable: true},
			{Name: "Flag", Label: "Flag", Type: "boolean", Lookup: "flags"},
			{Name: "Status", Label: "Status", Type: "string", Lookup: "statuses"},
			{Name: "start_date", Label: "Start Date", Type: "date"},
			{Name: "duration", Label: "Duration", Type: "time"},
			{Name: "created_at", Label: "Created At", Type: "datetime", Nullable: true},
			{Name: "tags", Label: "Tags", Type: "string", Array: true},
		},
		Lookups: map[string][]schema.Lookup{
			"flags": {
				{Name: "Enabled", Value: true},
				{Name: "Disabled", Value: false},
			},
			"statuses": {
				{Name: "Active", Value: "active"},
				{Name: "Inactive", Value: "inactive"},
			},
		},
	}
}

// Metadata builds Declaration and panics on failure.
func Metadata() *schema.Metadata {
	md, err := schema.Build(Declaration())
	if err != nil {
		panic(err)
	}
	return md
}

// Records returns rows matching Declaration, keyed by field name.
func Records() []map[string]any {
	return []map[string]any{
		{
			"Value": "Filtex", "Value1": "Test1", "Value2": "Test2",
			"NumberField": 10.0, "Flag": true, "Status": "active",
			"start_date": day(2024, 1, 15), "duration": 90 * time.Minute,
			"created_at": time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
			"tags": []any{"red", "blue"},
		},
		{
			"Value": "Parser", "Value1": "Test1", "Value2": "Other",
			"NumberField": 25.5, "Flag": false, "Status": "inactive",
			"start_date": day(2024, 3, 1), "duration": 30 * time.Minute,
			"created_at": nil,
			"tags": []any{},
		},
		{
			"Value": "Tokenizer", "Value1": "Other", "Value2": "Test2",
			"NumberField": nil, "Flag": true, "Status": "active",
			"start_date": day(2023, 12, 31), "duration": 2 * time.Hour,
			"created_at": time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC),
			"tags": []any{"green"},
		},
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
