package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"stopsearch-bknd/internal/models"
)

// datetimeKeys are the raw keys accepted for the record timestamp.
var datetimeKeys = []string{"datetime", "date_time"}

// NormalizeRecord converts one raw upstream record into the canonical shape.
// It never fails: missing or falsy values fall back to field defaults.
func NormalizeRecord(raw map[string]any) models.IncidentRecord {
	if raw == nil {
		raw = map[string]any{}
	}
	r := rawRecord(raw)

	return models.IncidentRecord{
		AgeRange:                       r.str("age_range", models.NotSpecified),
		Outcome:                        r.str("outcome", models.NotSpecified),
		InvolvedPerson:                 r.boolean("involved_person"),
		SelfDefinedEthnicity:           r.str("self_defined_ethnicity", models.NotSpecified),
		Gender:                         r.str("gender", models.NotSpecified),
		Legislation:                    r.nullableStr("legislation"),
		OutcomeLinkedToObjectOfSearch:  r.nullableBool("outcome_linked_to_object_of_search"),
		Datetime:                       r.str(datetimeKeys[0], models.NotSpecified, datetimeKeys[1:]...),
		RemovalOfMoreThanOuterClothing: r.boolean("removal_of_more_than_outer_clothing"),
		OutcomeObject: models.OutcomeObject{
			ID:   r.nested("outcome_object").str("id", ""),
			Name: r.nested("outcome_object").str("name", models.NotSpecified),
		},
		Location:                r.location(),
		Operation:               r.nullableStr("operation"),
		OfficerDefinedEthnicity: r.nullableStr("officer_defined_ethnicity"),
		Type:                    r.str("type", models.NotSpecified),
		OperationName:           r.nullableStr("operation_name"),
		ObjectOfSearch:          r.str("object_of_search", models.NotSpecified),
	}
}

// IsWellFormed reports whether v is an object carrying both a datetime key
// and an outcome key. Values are not inspected.
func IsWellFormed(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil, false
	}
	_, hasDatetime := m["datetime"]
	_, hasOutcome := m["outcome"]
	if !hasDatetime || !hasOutcome {
		return nil, false
	}
	return m, true
}

type rawRecord map[string]any

// lookup returns the first truthy value under key or its camelCase form,
// then under each alias in the same way.
func (r rawRecord) lookup(key string, aliases ...string) (any, bool) {
	for _, k := range append([]string{key}, aliases...) {
		if v := r[k]; truthy(v) {
			return v, true
		}
		if v := r[snakeToCamel(k)]; truthy(v) {
			return v, true
		}
	}
	return nil, false
}

func (r rawRecord) str(key, fallback string, aliases ...string) string {
	if v, ok := r.lookup(key, aliases...); ok {
		return stringify(v)
	}
	return fallback
}

func (r rawRecord) boolean(key string) bool {
	_, ok := r.lookup(key)
	return ok
}

func (r rawRecord) nullableStr(key string) *string {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	s := stringify(v)
	return &s
}

// nullableBool is true for a truthy value and unknown otherwise, false included.
func (r rawRecord) nullableBool(key string) *bool {
	if _, ok := r.lookup(key); !ok {
		return nil
	}
	t := true
	return &t
}

func (r rawRecord) nested(key string) rawRecord {
	v, ok := r.lookup(key)
	if !ok {
		return rawRecord{}
	}
	m, _ := v.(map[string]any)
	return rawRecord(m)
}

func (r rawRecord) location() *models.Location {
	v, ok := r.lookup("location")
	if !ok {
		return nil
	}
	loc, _ := v.(map[string]any)

	out := &models.Location{
		Latitude:  truthyString(loc["latitude"]),
		Longitude: truthyString(loc["longitude"]),
		Street:    models.Street{ID: 0, Name: models.NotSpecified},
	}
	if street, ok := loc["street"].(map[string]any); ok {
		out.Street.ID = toInt(street["id"])
		if truthy(street["name"]) {
			out.Street.Name = stringify(street["name"])
		}
	}
	return out
}

// snakeToCamel upper-cases every letter that follows an underscore, dropping
// the underscore. One left-to-right pass; "a__b" becomes "a_B".
func snakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' && i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z' {
			b.WriteByte(s[i+1] - ('a' - 'A'))
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// truthy mirrors loose JSON truthiness: null, false, "", 0 and NaN are falsy,
// objects and arrays are truthy even when empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0 && !math.IsNaN(f)
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	return true
}

func truthyString(v any) string {
	if !truthy(v) {
		return ""
	}
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		return "[object Object]"
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			if p != nil {
				parts[i] = stringify(p)
			}
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

func toInt(v any) int {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = t
	case int:
		return t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}
