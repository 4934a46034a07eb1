package testutil

import (
	"time"

	"github.com/google/uuid"
)

// recordData holds a record to be inserted.
type recordData struct {
	domain    string
	number    string
	label     string
	createdAt time.Time
	fields    map[string]any
}

// RecordOption configures a record added to a Builder.
type RecordOption func(*recordData)

// Label sets the label column.
func Label(label string) RecordOption {
	return func(r *recordData) { r.label = label }
}

// CreatedAt sets the creation timestamp.
func CreatedAt(t time.Time) RecordOption {
	return func(r *recordData) { r.createdAt = t }
}

// Created parses a "2006-01-02" date as the creation timestamp.
func Created(date string) RecordOption {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic("testutil.Created: " + err.Error())
	}
	return CreatedAt(t)
}

// Field sets an extra column.
func Field(name string, value any) RecordOption {
	return func(r *recordData) { r.fields[name] = value }
}

// requiredFields fills the NOT NULL columns a built-in schema has beyond the
// number and label.
func requiredFields(schema string) map[string]any {
	switch schema {
	case "multi":
		token := uuid.NewString()
		return map[string]any{
			"file_type": "pdf",
			"file_name": token + ".pdf",
			"token":     token,
		}
	default:
		return map[string]any{}
	}
}
