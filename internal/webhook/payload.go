package webhook

import (
	"strconv"
	"strings"
)

// Payload is the decoded webhook body. Senders disagree on field names, so
// each logical field is read through an ordered list of candidate keys.
type Payload map[string]any

var (
	emailKeys       = []string{"email", "customer_email", "Email"}
	combinedKeys    = []string{"name", "full_name", "Name", "customer_name"}
	firstNameKeys   = []string{"first_name", "firstName"}
	lastNameKeys    = []string{"last_name", "lastName"}
	userRefKeys     = []string{"user_id", "userId", "source"}
	displayNameKeys = []string{"Client Name", "name", "full_name", "Name", "customer_name"}
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// stringField returns the first candidate key that holds a usable value.
// Numeric values are accepted because some senders ship identifiers as JSON
// numbers.
func (p Payload) stringField(keys []string) string {
	for _, key := range keys {
		s := asString(p[key])
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// CustomerEmail returns the normalized customer email, or "" when no alias
// carries one.
func (p Payload) CustomerEmail() string {
	return normalize(p.stringField(emailKeys))
}

// DisplayName is the name stored on the order. "Client Name" wins over the
// contact-name aliases when a sender supplies both.
func (p Payload) DisplayName() string {
	return strings.TrimSpace(p.stringField(displayNameKeys))
}

// UserRef returns the sender-provided account identifier, if any.
func (p Payload) UserRef() string {
	return strings.TrimSpace(p.stringField(userRefKeys))
}

// ParsedName holds the normalized name parts used by fuzzy matching.
type ParsedName struct {
	First string
	Last  string
	Full  string
}

// ParseName reads explicit first/last fields when present, otherwise splits
// a combined name field on whitespace: first token becomes the first name,
// the rest the last name.
func (p Payload) ParseName() ParsedName {
	first := normalize(p.stringField(firstNameKeys))
	last := normalize(p.stringField(lastNameKeys))
	full := normalize(p.stringField(combinedKeys))

	if first == "" && last == "" && full != "" {
		parts := strings.Fields(full)
		if len(parts) > 0 {
			first = parts[0]
			last = strings.Join(parts[1:], " ")
		}
	}

	return ParsedName{First: first, Last: last, Full: full}
}

// ExternalOrderID extracts the dedup key. Preferred source is the first line
// item's meta.order_id; fallback is "{source_id}_{created_at}" from the
// nested order object. Returns "" when neither is derivable, in which case
// dedup-by-ID is skipped for the event.
func (p Payload) ExternalOrderID() string {
	order, ok := p["order"].(map[string]any)
	if !ok {
		return ""
	}

	if items, ok := order["line_items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if meta, ok := item["meta"].(map[string]any); ok {
				if id := strings.TrimSpace(asString(meta["order_id"])); id != "" {
					return id
				}
			}
		}
	}

	sourceID := strings.TrimSpace(asString(order["source_id"]))
	createdAt := strings.TrimSpace(asString(order["created_at"]))
	if sourceID != "" && createdAt != "" {
		return sourceID + "_" + createdAt
	}

	return ""
}
