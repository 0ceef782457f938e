package models

import (
	"math"
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FrequencyOnceDaily   = "once-daily"
	FrequencyTwiceDaily  = "twice-daily"
	FrequencyThriceDaily = "thrice-daily"
	FrequencyFourTimes   = "four-times-daily"
	FrequencyAsNeeded    = "as-needed"
	FrequencyCustom      = "custom"
)

var Frequencies = []string{
	FrequencyOnceDaily, FrequencyTwiceDaily, FrequencyThriceDaily,
	FrequencyFourTimes, FrequencyAsNeeded, FrequencyCustom,
}

// DefaultScheduleTime is the single daily slot used when no times are supplied.
const DefaultScheduleTime = "09:00"

type ScheduleSlot struct {
	Time    string     `json:"time" bson:"time" validate:"required,hhmm"`
	Taken   bool       `json:"taken" bson:"taken"`
	TakenAt *time.Time `json:"takenAt,omitempty" bson:"takenAt,omitempty"`
}

type AdherenceEntry struct {
	Date          time.Time  `json:"date" bson:"date"`
	Taken         bool       `json:"taken" bson:"taken"`
	ScheduledTime string     `json:"scheduledTime,omitempty" bson:"scheduledTime,omitempty"`
	ActualTime    *time.Time `json:"actualTime,omitempty" bson:"actualTime,omitempty"`
	Notes         string     `json:"notes,omitempty" bson:"notes,omitempty"`
}

type RefillReminder struct {
	Enabled          bool `json:"enabled" bson:"enabled"`
	DaysBeforeRefill int  `json:"daysBeforeRefill" bson:"daysBeforeRefill" validate:"gte=0"`
}

type Medication struct {
	ID                 primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Patient            primitive.ObjectID  `json:"patient" bson:"patient" validate:"required"`
	Name               string              `json:"name" bson:"name" validate:"required"`
	Dosage             string              `json:"dosage" bson:"dosage" validate:"required"`
	Frequency          string              `json:"frequency" bson:"frequency" validate:"oneof=once-daily twice-daily thrice-daily four-times-daily as-needed custom"`
	Schedule           []ScheduleSlot      `json:"schedule" bson:"schedule" validate:"dive"`
	StartDate          time.Time           `json:"startDate" bson:"startDate"`
	EndDate            *time.Time          `json:"endDate,omitempty" bson:"endDate,omitempty"`
	Instructions       string              `json:"instructions,omitempty" bson:"instructions,omitempty"`
	PrescribedBy       string              `json:"prescribedBy,omitempty" bson:"prescribedBy,omitempty"`
	SourcePrescription *primitive.ObjectID `json:"sourcePrescription,omitempty" bson:"sourcePrescription,omitempty"`
	RefillReminder     RefillReminder      `json:"refillReminder" bson:"refillReminder"`
	IsActive           bool                `json:"isActive" bson:"isActive"`
	AdherenceHistory   []AdherenceEntry    `json:"adherenceHistory" bson:"adherenceHistory"`
	CreatedAt          time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// ApplyDefaults fills the fields a new record starts with when left empty.
func (m *Medication) ApplyDefaults(now time.Time) {
	m.Name = strings.TrimSpace(m.Name)
	if m.StartDate.IsZero() {
		m.StartDate = now
	}
	if m.Schedule == nil {
		m.Schedule = []ScheduleSlot{}
	}
	if m.AdherenceHistory == nil {
		m.AdherenceHistory = []AdherenceEntry{}
	}
	if m.RefillReminder.DaysBeforeRefill == 0 {
		m.RefillReminder.DaysBeforeRefill = 7
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

func (m *Medication) Validate() error {
	return validate.Struct(m)
}

// AdherenceRate is the percentage of history entries marked taken, rounded to two decimals.
func (m *Medication) AdherenceRate() float64 {
	total := len(m.AdherenceHistory)
	if total == 0 {
		return 0
	}
	return Round2(float64(m.TakenDoses()) / float64(total) * 100)
}

func (m *Medication) TakenDoses() int {
	n := 0
	for _, h := range m.AdherenceHistory {
		if h.Taken {
			n++
		}
	}
	return n
}

// LogIntake appends a history entry and marks the slot whose time matches exactly.
// A time with no matching slot still lands in the history.
func (m *Medication) LogIntake(scheduleTime string, taken bool, notes string, at time.Time) {
	for i := range m.Schedule {
		if m.Schedule[i].Time == scheduleTime {
			m.Schedule[i].Taken = taken
			m.Schedule[i].TakenAt = &at
			break
		}
	}
	m.AdherenceHistory = append(m.AdherenceHistory, AdherenceEntry{
		Date:          at,
		Taken:         taken,
		ScheduledTime: scheduleTime,
		ActualTime:    &at,
		Notes:         notes,
	})
	m.UpdatedAt = at
}

// DueAt reports whether an untaken slot is scheduled at the given "HH:MM".
func (m *Medication) DueAt(hhmm string) bool {
	for _, s := range m.Schedule {
		if s.Time == hhmm && !s.Taken {
			return true
		}
	}
	return false
}

func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// NormalizeFrequency maps free-text frequencies ("twice a day", "BID") onto the enum.
// Matching is on whole words. Weekly or monthly regimens and anything unrecognised
// become custom.
func NormalizeFrequency(s string) string {
	f := strings.ToLower(strings.TrimSpace(s))
	for _, known := range Frequencies {
		if f == known {
			return f
		}
	}
	words := strings.FieldsFunc(f, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	switch {
	case len(words) == 0:
		return FrequencyCustom
	case hasPhrase(words, "as needed", "prn", "sos", "when required"):
		return FrequencyAsNeeded
	case hasWordPrefix(words, "week", "month", "fortnight"):
		return FrequencyCustom
	case hasPhrase(words, "four times", "4 times", "qid", "qds"):
		return FrequencyFourTimes
	case hasPhrase(words, "thrice", "three times", "3 times", "tid", "tds"):
		return FrequencyThriceDaily
	case hasPhrase(words, "twice", "two times", "2 times", "bid", "bd"):
		return FrequencyTwiceDaily
	case hasPhrase(words, "once", "one time", "1 time", "daily", "od", "qd"):
		return FrequencyOnceDaily
	default:
		return FrequencyCustom
	}
}

// hasPhrase reports whether any phrase occurs as a run of consecutive words.
func hasPhrase(words []string, phrases ...string) bool {
	for _, phrase := range phrases {
		want := strings.Fields(phrase)
		for i := 0; i+len(want) <= len(words); i++ {
			match := true
			for j, w := range want {
				if words[i+j] != w {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

func hasWordPrefix(words []string, prefixes ...string) bool {
	for _, w := range words {
		for _, p := range prefixes {
			if strings.HasPrefix(w, p) {
				return true
			}
		}
	}
	return false
}
