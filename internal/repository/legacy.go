package repository

import (
	"bytes"
	"encoding/json"
	"time"
)

// Sections of the store file. Anything else (the old "statistics" block)
// is dropped; counters are recomputed from the records.
var legacySections = []string{"users", "payments", "admins", "coupons", "plans"}

var (
	legacyIDFields   = []string{"user_id", "added_by", "reviewed_by", "uploaded_by"}
	legacyIntFields  = []string{"message_count", "last_message_time", "payment_attempts", "questionnaire_current_step", "price", "discount", "discount_percent", "usage_count"}
	legacyTimeFields = []string{"created_at", "updated_at", "last_interaction", "reminded_at", "timestamp", "reviewed_at", "added_at", "sent_at"}
)

// Timestamps written without a zone are read as local time.
var legacyTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// decodeDocument parses the store file. A document the current layout
// cannot decode is normalized first and decoded again.
func decodeDocument(raw []byte, doc *jsonDocument) error {
	err := json.Unmarshal(raw, doc)
	if err == nil {
		return nil
	}
	fixed, nerr := normalizeLegacy(raw)
	if nerr != nil {
		return err
	}
	*doc = jsonDocument{}
	return json.Unmarshal(fixed, doc)
}

// normalizeLegacy rewrites an earlier bot_data.json into the current field
// types: numeric ids become strings, naive ISO timestamps get a zone,
// float counters are truncated and non-text answers are kept as JSON text.
func normalizeLegacy(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(legacySections))
	for _, name := range legacySections {
		section, ok := doc[name].(map[string]interface{})
		if !ok {
			continue
		}
		for key, v := range section {
			rec, ok := v.(map[string]interface{})
			if !ok {
				delete(section, key)
				continue
			}
			normalizeRecord(rec)
			if name == "users" || name == "admins" {
				if id, _ := rec["user_id"].(string); id == "" {
					rec["user_id"] = key
				}
			}
		}
		out[name] = section
	}
	return json.Marshal(out)
}

func normalizeRecord(rec map[string]interface{}) {
	for _, f := range legacyIDFields {
		if n, ok := rec[f].(json.Number); ok {
			rec[f] = n.String()
		}
	}
	for _, f := range legacyIntFields {
		switch v := rec[f].(type) {
		case json.Number:
			if _, err := v.Int64(); err == nil {
				continue
			}
			if fl, err := v.Float64(); err == nil {
				rec[f] = int64(fl)
			} else {
				delete(rec, f)
			}
		case nil:
		default:
			delete(rec, f)
		}
	}
	for _, f := range legacyTimeFields {
		v, present := rec[f]
		if !present {
			continue
		}
		if t, ok := legacyTime(v); ok {
			rec[f] = t.Format(time.RFC3339Nano)
		} else {
			delete(rec, f)
		}
	}
	if answers, ok := rec["answers"].(map[string]interface{}); ok {
		for k, v := range answers {
			switch a := v.(type) {
			case string:
			case json.Number:
				answers[k] = a.String()
			default:
				b, err := json.Marshal(a)
				if err != nil {
					delete(answers, k)
					continue
				}
				answers[k] = string(b)
			}
		}
	}
}

// legacyTime accepts RFC 3339, naive ISO strings and unix seconds. The
// earlier bot also stored event-loop clock readings, which are not wall
// time and are discarded.
func legacyTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		for _, layout := range legacyTimeLayouts {
			if parsed, err := time.ParseInLocation(layout, t, time.Local); err == nil {
				return parsed, true
			}
		}
	case json.Number:
		secs, err := t.Float64()
		if err == nil && secs >= 1e9 {
			return time.Unix(int64(secs), 0), true
		}
	}
	return time.Time{}, false
}
