package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CategoryRef points at a Category either by raw id or by an embedded
// (populated) record. Callers compare and group refs only through Key.
type CategoryRef struct {
	ID       string
	Category *Category
}

// RefTo builds a ref from a raw id.
func RefTo(id string) CategoryRef {
	return CategoryRef{ID: id}
}

// RefFromCategory builds a populated ref.
func RefFromCategory(c Category) CategoryRef {
	return CategoryRef{ID: c.ID, Category: &c}
}

// Key extracts the comparable id from either representation.
// Returns "" for a null or blank ref.
func (r CategoryRef) Key() string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	if r.Category != nil {
		return strings.TrimSpace(r.Category.ID)
	}
	return ""
}

// Same reports whether both refs point at the same category id.
// Two blank refs are not considered the same.
func (r CategoryRef) Same(o CategoryRef) bool {
	k := r.Key()
	return k != "" && k == o.Key()
}

type categoryObject struct {
	ID      json.RawMessage `json:"id,omitempty"`
	MongoID json.RawMessage `json:"_id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Color   string          `json:"color,omitempty"`
}

// UnmarshalJSON accepts null, a string id, a numeric id, or an object
// carrying "id" or "_id".
func (r *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = CategoryRef{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '{':
		var obj categoryObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode category object: %w", err)
		}
		raw := obj.ID
		if len(raw) == 0 {
			raw = obj.MongoID
		}
		id, err := scalarID(raw)
		if err != nil {
			return err
		}
		r.ID = id
		if obj.Name != "" || obj.Color != "" {
			r.Category = &Category{ID: id, Name: obj.Name, Color: obj.Color}
		}
		return nil
	default:
		id, err := scalarID(data)
		if err != nil {
			return err
		}
		r.ID = id
		return nil
	}
}

// MarshalJSON writes the populated object when available, the raw id
// otherwise, and null for a blank ref.
func (r CategoryRef) MarshalJSON() ([]byte, error) {
	key := r.Key()
	if key == "" {
		return []byte("null"), nil
	}
	if r.Category != nil {
		return json.Marshal(struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Color string `json:"color"`
		}{ID: key, Name: r.Category.Name, Color: r.Category.Color})
	}
	return json.Marshal(key)
}

func scalarID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode category id: %w", err)
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode category id: %w", err)
	}
	return n.String(), nil
}
