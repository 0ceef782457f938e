package models

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var PrescriptionStatuses = []string{StatusPending, StatusProcessing, StatusReady, StatusCompleted, StatusCancelled}

const (
	SourceManual = "manual"
	SourceParser = "prescription_parser"
)

type PrescribedBy struct {
	Name     string `json:"name" bson:"name" validate:"required"`
	License  string `json:"license,omitempty" bson:"license,omitempty"`
	Hospital string `json:"hospital,omitempty" bson:"hospital,omitempty"`
	Contact  string `json:"contact,omitempty" bson:"contact,omitempty"`
}

type PrescribedMedication struct {
	Name         string     `json:"name" bson:"name" validate:"required"`
	Dosage       string     `json:"dosage,omitempty" bson:"dosage,omitempty"`
	Quantity     int        `json:"quantity" bson:"quantity" validate:"gte=0"`
	Frequency    string     `json:"frequency,omitempty" bson:"frequency,omitempty"`
	Duration     string     `json:"duration,omitempty" bson:"duration,omitempty"`
	Instructions string     `json:"instructions,omitempty" bson:"instructions,omitempty"`
	IsActive     bool       `json:"isActive" bson:"isActive"`
	Source       string     `json:"source" bson:"source" validate:"oneof=manual prescription_parser"`
	ParsedAt     *time.Time `json:"parsedAt,omitempty" bson:"parsedAt,omitempty"`
}

type PrescriptionImage struct {
	URL          string    `json:"url" bson:"url"`
	Key          string    `json:"key,omitempty" bson:"key,omitempty"`
	Filename     string    `json:"filename,omitempty" bson:"filename,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt" bson:"uploadedAt"`
	UploadedToS3 bool      `json:"uploadedToS3" bson:"uploadedToS3"`
	SignedURL    string    `json:"signedUrl,omitempty" bson:"-"`
}

type ParsingResult struct {
	Success             bool      `json:"success" bson:"success"`
	MedicationsFound    int       `json:"medicationsFound" bson:"medicationsFound"`
	ExtractedTextLength int       `json:"extractedTextLength" bson:"extractedTextLength"`
	Error               string    `json:"error,omitempty" bson:"error,omitempty"`
	ProcessedAt         time.Time `json:"processedAt" bson:"processedAt"`
}

type RefillEntry struct {
	Date     time.Time           `json:"date" bson:"date"`
	Pharmacy *primitive.ObjectID `json:"pharmacy,omitempty" bson:"pharmacy,omitempty"`
	Status   string              `json:"status" bson:"status"`
}

type Prescription struct {
	ID                 primitive.ObjectID     `json:"_id" bson:"_id,omitempty"`
	Patient            primitive.ObjectID     `json:"patient" bson:"patient" validate:"required"`
	Pharmacy           *primitive.ObjectID    `json:"pharmacy,omitempty" bson:"pharmacy,omitempty"`
	PrescriptionNumber string                 `json:"prescriptionNumber" bson:"prescriptionNumber" validate:"required"`
	PrescribedBy       PrescribedBy           `json:"prescribedBy" bson:"prescribedBy"`
	Medications        []PrescribedMedication `json:"medications" bson:"medications" validate:"dive"`
	PrescriptionDate   time.Time              `json:"prescriptionDate" bson:"prescriptionDate" validate:"required"`
	ExpiryDate         *time.Time             `json:"expiryDate,omitempty" bson:"expiryDate,omitempty"`
	Status             string                 `json:"status" bson:"status" validate:"oneof=pending processing ready completed cancelled"`
	PrescriptionImage  *PrescriptionImage     `json:"prescriptionImage,omitempty" bson:"prescriptionImage,omitempty"`
	ParsingResult      *ParsingResult         `json:"parsingResult,omitempty" bson:"parsingResult,omitempty"`
	Notes              string                 `json:"notes,omitempty" bson:"notes,omitempty"`
	RefillsRemaining   int                    `json:"refillsRemaining" bson:"refillsRemaining"`
	RefillHistory      []RefillEntry          `json:"refillHistory" bson:"refillHistory"`
	CreatedAt          time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// NewPrescription returns a pending prescription with empty line items.
func NewPrescription(patient primitive.ObjectID, number string, by PrescribedBy, date time.Time) *Prescription {
	now := time.Now()
	number = strings.TrimSpace(number)
	if number == "" {
		number = GeneratePrescriptionNumber(now)
	}
	if date.IsZero() {
		date = now
	}
	return &Prescription{
		Patient:            patient,
		PrescriptionNumber: number,
		PrescribedBy:       by,
		Medications:        []PrescribedMedication{},
		PrescriptionDate:   date,
		Status:             StatusPending,
		RefillHistory:      []RefillEntry{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// GeneratePrescriptionNumber builds "RX<unix-millis><0..999>". Collisions are possible and
// surface as a uniqueness violation on insert.
func GeneratePrescriptionNumber(now time.Time) string {
	return fmt.Sprintf("RX%d%d", now.UnixMilli(), rand.Intn(1000))
}

func IsValidStatus(s string) bool {
	for _, st := range PrescriptionStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func (p *Prescription) Validate() error {
	return validate.Struct(p)
}

func (p *Prescription) HasFile() bool {
	return p.PrescriptionImage != nil && (p.PrescriptionImage.Key != "" || p.PrescriptionImage.URL != "")
}

func (p *Prescription) IsOwnedBy(user primitive.ObjectID) bool {
	return p.Patient == user
}

func (p *Prescription) IsAssignedTo(pharmacy primitive.ObjectID) bool {
	return p.Pharmacy != nil && *p.Pharmacy == pharmacy
}
