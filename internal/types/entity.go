package types

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

// EntityKind enumerates the six entity variants. The set is closed:
// processor dispatch is resolved statically against these values.
type EntityKind string

const (
	KindCharacter EntityKind = "character"
	KindSkill     EntityKind = "skill"
	KindItem      EntityKind = "item"
	KindEnemy     EntityKind = "enemy"
	KindLocation  EntityKind = "location"
	KindQuest     EntityKind = "quest"
)

// AllKinds returns the entity kinds in canonical processing order.
func AllKinds() []EntityKind {
	return []EntityKind{
		KindCharacter, KindSkill, KindItem,
		KindEnemy, KindLocation, KindQuest,
	}
}

// ParseKind returns the kind named by s, or false when unknown.
func ParseKind(s string) (EntityKind, bool) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindCharacter, KindSkill, KindItem, KindEnemy, KindLocation, KindQuest:
		return k, true
	}
	return "", false
}

// EntityRecord is one typed game entity. ID, Name and Kind are required on
// every record; Fields carries the category-specific extras and stays sparse
// (missing values are omitted, never null-filled).
type EntityRecord struct {
	ID     string
	Name   string
	Kind   EntityKind
	Fields map[string]any

	// SourceURL is the wiki page the record was extracted from.
	SourceURL string
}

// Set stores a category-specific field.
func (e *EntityRecord) Set(key string, value any) {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
}

// Get retrieves a category-specific field.
func (e *EntityRecord) Get(key string) (any, bool) {
	v, ok := e.Fields[key]
	return v, ok
}

// StringList returns a field as a string slice. Single strings are wrapped;
// anything else yields nil.
func (e *EntityRecord) StringList(key string) []string {
	switch v := e.Fields[key].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Doc flattens the record into a single document for persistence.
func (e *EntityRecord) Doc() map[string]any {
	doc := make(map[string]any, len(e.Fields)+4)
	for k, v := range e.Fields {
		doc[k] = v
	}
	doc["id"] = e.ID
	doc["name"] = e.Name
	doc["type"] = string(e.Kind)
	if e.SourceURL != "" {
		doc["source_url"] = e.SourceURL
	}
	return doc
}

// MarshalJSON flattens Fields alongside the required keys.
func (e *EntityRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Doc())
}

// UnmarshalJSON restores a flattened record.
func (e *EntityRecord) UnmarshalJSON(data []byte) error {
	doc := make(map[string]any)
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	e.ID, _ = doc["id"].(string)
	e.Name, _ = doc["name"].(string)
	if s, ok := doc["type"].(string); ok {
		e.Kind = EntityKind(s)
	}
	e.SourceURL, _ = doc["source_url"].(string)
	delete(doc, "id")
	delete(doc, "name")
	delete(doc, "type")
	delete(doc, "source_url")
	e.Fields = doc
	return nil
}

var slugStrip = regexp.MustCompile(`_+`)

// Slugify derives a deterministic lowercase ASCII identifier from a canonical
// name. Non-alphanumeric runs collapse to a single underscore.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '_', r == '/', r == ':', r == '.':
			b.WriteByte('_')
		}
	}
	return strings.Trim(slugStrip.ReplaceAllString(b.String(), "_"), "_")
}

// EntityID builds an entity id from a page's canonical name. Ids must not
// start with a digit, so those get the kind's initial as a prefix.
func EntityID(kind EntityKind, name string) string {
	id := Slugify(name)
	if id == "" {
		return ""
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = string(kind[0]) + "_" + id
	}
	return id
}
