package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// APITime принимает даты бэкенда как с часовым поясом, так и без него.
type APITime struct {
	time.Time
}

const apiTimeLayout = "2006-01-02T15:04:05"

var apiTimeLayouts = []string{
	time.RFC3339Nano,
	apiTimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *APITime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range apiTimeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported date format %q", s)
}

func (t APITime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(apiTimeLayout))
}
