package parser

import (
	"Ashray/models"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Result struct {
	Success             bool         `json:"success"`
	ExtractedTextLength int          `json:"extracted_text_length"`
	MedicationsFound    int          `json:"medications_found"`
	Medications         []Medication `json:"medications"`
	ProcessedAt         Timestamp    `json:"processed_at"`
	Error               string       `json:"error,omitempty"`
}

type Medication struct {
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Frequency    string    `json:"frequency"`
	Instructions string    `json:"instructions"`
	ParsedAt     Timestamp `json:"parsed_at"`
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO form the service emits (UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// FormatForStorage converts parsed medications into prescription line items.
// Items without a name are dropped.
func FormatForStorage(meds []Medication, now time.Time) []models.PrescribedMedication {
	out := make([]models.PrescribedMedication, 0, len(meds))
	for _, m := range meds {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		parsedAt := now
		if !m.ParsedAt.IsZero() {
			parsedAt = m.ParsedAt.Time
		}
		instructions := strings.TrimSpace(m.Instructions)
		if instructions == "" {
			instructions = fmt.Sprintf("Take %s %s", m.Dosage, m.Frequency)
		}
		out = append(out, models.PrescribedMedication{
			Name:         name,
			Dosage:       m.Dosage,
			Quantity:     1,
			Frequency:    m.Frequency,
			Instructions: instructions,
			IsActive:     true,
			Source:       models.SourceParser,
			ParsedAt:     &parsedAt,
		})
	}
	return out
}
