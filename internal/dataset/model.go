/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package dataset is the typed row model shared by sources, sinks and the
// anonymizer, together with the source and sink implementations.
package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DeclaredType is the normalized storage type of a column.
type DeclaredType string

const (
	Text    DeclaredType = "text"
	Varchar DeclaredType = "varchar"
	Date    DeclaredType = "date"
	Integer DeclaredType = "integer"
	Float   DeclaredType = "float"
	Numeric DeclaredType = "numeric"
	Boolean DeclaredType = "boolean"
	Unknown DeclaredType = "unknown"
)

// DateLayout is the layout dates are rendered in and parsed from first.
const DateLayout = "02.01.2006"

var typeAliases = map[string]DeclaredType{
	"text": Text, "ntext": Text, "tinytext": Text, "mediumtext": Text, "longtext": Text, "citext": Text,
	"varchar": Varchar, "character varying": Varchar, "nvarchar": Varchar, "char": Varchar,
	"character": Varchar, "nchar": Varchar, "bpchar": Varchar,
	"date": Date,
	"integer": Integer, "int": Integer, "int2": Integer, "int4": Integer, "int8": Integer,
	"smallint": Integer, "bigint": Integer, "tinyint": Integer, "mediumint": Integer,
	"serial": Integer, "bigserial": Integer,
	"float": Float, "float4": Float, "float8": Float, "real": Float, "double": Float,
	"double precision": Float,
	"numeric": Numeric, "decimal": Numeric, "money": Numeric,
	"boolean": Boolean, "bool": Boolean, "bit": Boolean,
}

// NormalizeType maps a raw database type such as "character varying(255)" or
// "BIGINT UNSIGNED" onto a DeclaredType.
func NormalizeType(raw string) DeclaredType {
	t := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(t, "("); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimSuffix(t, " unsigned")
	if dt, ok := typeAliases[t]; ok {
		return dt
	}
	return Unknown
}

// IsText reports whether values of the type are free text.
func (t DeclaredType) IsText() bool {
	return t == Text || t == Varchar
}

// ColumnDescriptor describes one source column. It is derived once per table
// and not modified during a job.
type ColumnDescriptor struct {
	Name         string
	DeclaredType DeclaredType
	RawType      string
	// ExplicitStrategy is the override token configured for the column, if any.
	ExplicitStrategy string
}

// NewColumn builds a descriptor from a raw database type.
func NewColumn(name, rawType string) ColumnDescriptor {
	return ColumnDescriptor{Name: name, DeclaredType: NormalizeType(rawType), RawType: rawType}
}

// Value is one cell. Raw holds the driver value (string, []byte, int64,
// float64, bool, time.Time) or the converted value on the way out.
type Value struct {
	Type DeclaredType
	Null bool
	Raw  any
}

// NullValue is a NULL of type t.
func NullValue(t DeclaredType) Value {
	return Value{Type: t, Null: true}
}

// String renders the value as text. NULL renders as "".
func (v Value) String() string {
	if v.Null || v.Raw == nil {
		return ""
	}
	switch x := v.Raw.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(DateLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

// Row is a page row with one value per page column.
type Row []Value

// Page is a batch of rows pulled from a source at one offset.
type Page struct {
	Columns []ColumnDescriptor
	Rows    []Row
}

// Len returns the number of rows.
func (p Page) Len() int {
	return len(p.Rows)
}

// ColumnIndex returns the position of the named column or -1.
func (p Page) ColumnIndex(name string) int {
	for i, c := range p.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ErrConversion reports a value that cannot be stored in its column's type.
type ErrConversion struct {
	Value  string
	Target DeclaredType
	Err    error
}

func (e *ErrConversion) Error() string {
	return fmt.Sprintf("cannot convert %q to %s: %v", e.Value, e.Target, e.Err)
}

func (e *ErrConversion) Unwrap() error {
	return e.Err
}

var dateLayouts = []string{DateLayout, "2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "02/01/2006"}

// Convert turns text back into a value of type t.
func Convert(s string, t DeclaredType) (Value, error) {
	switch t {
	case Integer:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return NullValue(t), &ErrConversion{Value: s, Target: t, Err: err}
		}
		return Value{Type: t, Raw: n}, nil
	case Float, Numeric:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return NullValue(t), &ErrConversion{Value: s, Target: t, Err: err}
		}
		return Value{Type: t, Raw: f}, nil
	case Boolean:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return NullValue(t), &ErrConversion{Value: s, Target: t, Err: err}
		}
		return Value{Type: t, Raw: b}, nil
	case Date:
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return Value{Type: t, Raw: d}, nil
			}
		}
		return NullValue(t), &ErrConversion{Value: s, Target: t, Err: fmt.Errorf("no known date layout matches")}
	default:
		return Value{Type: t, Raw: s}, nil
	}
}
