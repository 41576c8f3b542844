package cube

import "strings"

// Card is one header keyword.
type Card struct {
	Name    string
	Value   interface{}
	Comment string
}

// Header is an ordered list of keyword cards. Lookups are case-insensitive.
type Header struct {
	Cards []Card
}

func (h *Header) find(name string) int {
	for i, c := range h.Cards {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool { return h.find(name) >= 0 }

// Get returns the raw value of name.
func (h *Header) Get(name string) (interface{}, bool) {
	i := h.find(name)
	if i < 0 {
		return nil, false
	}
	return h.Cards[i].Value, true
}

// Float returns name as a float64, coercing integer cards.
func (h *Header) Float(name string) (float64, bool) {
	v, ok := h.Get(name)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	default:
		return 0, false
	}
}

// FloatOr returns name as a float64 or def when absent.
func (h *Header) FloatOr(name string, def float64) float64 {
	if v, ok := h.Float(name); ok {
		return v
	}
	return def
}

// String returns a string card with padding removed, or "".
func (h *Header) String(name string) string {
	v, ok := h.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// Set replaces the value of name, appending a new card when absent.
func (h *Header) Set(name string, v interface{}) {
	if i := h.find(name); i >= 0 {
		h.Cards[i].Value = v
		return
	}
	h.Cards = append(h.Cards, Card{Name: strings.ToUpper(name), Value: v})
}

// Delete removes name if present.
func (h *Header) Delete(name string) {
	if i := h.find(name); i >= 0 {
		h.Cards = append(h.Cards[:i], h.Cards[i+1:]...)
	}
}

// Clone returns an independent copy.
func (h Header) Clone() Header {
	return Header{Cards: append([]Card(nil), h.Cards...)}
}
