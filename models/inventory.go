package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	InventoryCategories = []string{"antibiotic", "pain-relief", "cardiovascular", "diabetes", "respiratory", "vitamin", "other"}
	DosageForms         = []string{"tablet", "capsule", "syrup", "injection", "cream", "drops", "other"}
)

const DefaultReorderLevel = 10

type Supplier struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Contact string `json:"contact,omitempty" bson:"contact,omitempty"`
}

type ShelfLocation struct {
	Shelf string `json:"shelf,omitempty" bson:"shelf,omitempty"`
	Rack  string `json:"rack,omitempty" bson:"rack,omitempty"`
}

type RestockEntry struct {
	Date     time.Time `json:"date" bson:"date"`
	Quantity int       `json:"quantity" bson:"quantity"`
	Supplier string    `json:"supplier,omitempty" bson:"supplier,omitempty"`
	Cost     float64   `json:"cost,omitempty" bson:"cost,omitempty"`
}

type InventoryItem struct {
	ID                   primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Pharmacy             primitive.ObjectID `json:"pharmacy" bson:"pharmacy" validate:"required"`
	MedicationName       string             `json:"medicationName" bson:"medicationName" validate:"required"`
	GenericName          string             `json:"genericName,omitempty" bson:"genericName,omitempty"`
	Manufacturer         string             `json:"manufacturer,omitempty" bson:"manufacturer,omitempty"`
	Category             string             `json:"category" bson:"category" validate:"oneof=antibiotic pain-relief cardiovascular diabetes respiratory vitamin other"`
	DosageForm           string             `json:"dosageForm" bson:"dosageForm" validate:"required,oneof=tablet capsule syrup injection cream drops other"`
	Strength             string             `json:"strength" bson:"strength" validate:"required"`
	Quantity             int                `json:"quantity" bson:"quantity" validate:"gte=0"`
	ReorderLevel         int                `json:"reorderLevel" bson:"reorderLevel" validate:"gte=0"`
	Price                float64            `json:"price" bson:"price" validate:"gte=0"`
	BatchNumber          string             `json:"batchNumber,omitempty" bson:"batchNumber,omitempty"`
	ExpiryDate           *time.Time         `json:"expiryDate,omitempty" bson:"expiryDate,omitempty"`
	Supplier             *Supplier          `json:"supplier,omitempty" bson:"supplier,omitempty"`
	Location             *ShelfLocation     `json:"location,omitempty" bson:"location,omitempty"`
	IsAvailable          bool               `json:"isAvailable" bson:"isAvailable"`
	RequiresPrescription bool               `json:"requiresPrescription" bson:"requiresPrescription"`
	RestockHistory       []RestockEntry     `json:"restockHistory" bson:"restockHistory"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// InventoryInput is the client-supplied shape of an item. Pointers distinguish
// "absent" from zero so defaults can be applied.
type InventoryInput struct {
	MedicationName       *string        `json:"medicationName"`
	GenericName          *string        `json:"genericName"`
	Manufacturer         *string        `json:"manufacturer"`
	Category             *string        `json:"category"`
	DosageForm           *string        `json:"dosageForm"`
	Strength             *string        `json:"strength"`
	Quantity             *int           `json:"quantity"`
	ReorderLevel         *int           `json:"reorderLevel"`
	Price                *float64       `json:"price"`
	BatchNumber          *string        `json:"batchNumber"`
	ExpiryDate           *time.Time     `json:"expiryDate"`
	Supplier             *Supplier      `json:"supplier"`
	Location             *ShelfLocation `json:"location"`
	IsAvailable          *bool          `json:"isAvailable"`
	RequiresPrescription *bool          `json:"requiresPrescription"`
}

// NewInventoryItem builds an item with the record defaults applied.
func NewInventoryItem(pharmacy primitive.ObjectID, in InventoryInput, now time.Time) *InventoryItem {
	item := &InventoryItem{
		Pharmacy:             pharmacy,
		Category:             "other",
		ReorderLevel:         DefaultReorderLevel,
		IsAvailable:          true,
		RequiresPrescription: true,
		RestockHistory:       []RestockEntry{},
		CreatedAt:            now,
	}
	item.Apply(in, now)
	return item
}

// Apply copies every supplied field of in onto the item.
func (i *InventoryItem) Apply(in InventoryInput, now time.Time) {
	setString(&i.MedicationName, in.MedicationName)
	setString(&i.GenericName, in.GenericName)
	setString(&i.Manufacturer, in.Manufacturer)
	setString(&i.Category, in.Category)
	setString(&i.DosageForm, in.DosageForm)
	setString(&i.Strength, in.Strength)
	setString(&i.BatchNumber, in.BatchNumber)
	if in.Quantity != nil {
		i.Quantity = *in.Quantity
	}
	if in.ReorderLevel != nil {
		i.ReorderLevel = *in.ReorderLevel
	}
	if in.Price != nil {
		i.Price = *in.Price
	}
	if in.ExpiryDate != nil {
		i.ExpiryDate = in.ExpiryDate
	}
	if in.Supplier != nil {
		i.Supplier = in.Supplier
	}
	if in.Location != nil {
		i.Location = in.Location
	}
	if in.IsAvailable != nil {
		i.IsAvailable = *in.IsAvailable
	}
	if in.RequiresPrescription != nil {
		i.RequiresPrescription = *in.RequiresPrescription
	}
	i.UpdatedAt = now
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func (i *InventoryItem) Validate() error {
	return validate.Struct(i)
}

// NeedsReorder is true once stock has fallen to the reorder level.
func (i *InventoryItem) NeedsReorder() bool {
	return i.Quantity <= i.ReorderLevel
}

func (i *InventoryItem) Restock(quantity int, supplier string, cost float64, at time.Time) {
	i.Quantity += quantity
	i.RestockHistory = append(i.RestockHistory, RestockEntry{
		Date:     at,
		Quantity: quantity,
		Supplier: supplier,
		Cost:     cost,
	})
	i.UpdatedAt = at
}

// InventoryView adds the derived reorder flag to the stored record.
type InventoryView struct {
	*InventoryItem
	NeedsReorder bool `json:"needsReorder"`
}

func (i *InventoryItem) View() InventoryView {
	return InventoryView{InventoryItem: i, NeedsReorder: i.NeedsReorder()}
}
