package services

import (
	"Ashray/models"
	"Ashray/notify"
	"Ashray/parser"
	"Ashray/repository"
	"Ashray/storage"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The interfaces below are satisfied by the repository stores and the storage,
// parser and notify clients. Tests substitute in-memory fakes.

type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error)
	SetEmailVerified(ctx context.Context, email string) error
	TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type PrescriptionRepository interface {
	Insert(ctx context.Context, p *models.Prescription) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prescription, error)
	List(ctx context.Context, f repository.PrescriptionFilter) ([]models.Prescription, error)
	AppendMedications(ctx context.Context, id primitive.ObjectID, meds []models.PrescribedMedication, result models.ParsingResult) (*models.Prescription, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, pharmacy primitive.ObjectID) (*models.Prescription, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByStatus(ctx context.Context, pharmacy *primitive.ObjectID) (map[string]int64, error)
}

type MedicationRepository interface {
	Insert(ctx context.Context, m *models.Medication) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Medication, error)
	ListByPatient(ctx context.Context, patient primitive.ObjectID, activeOnly bool) ([]models.Medication, error)
	ListActive(ctx context.Context) ([]models.Medication, error)
	Save(ctx context.Context, m *models.Medication) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type InventoryRepository interface {
	Insert(ctx context.Context, item *models.InventoryItem) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error)
	List(ctx context.Context, f repository.InventoryFilter) ([]models.InventoryItem, error)
	LowStock(ctx context.Context, pharmacy primitive.ObjectID) ([]models.InventoryItem, error)
	Count(ctx context.Context, pharmacy primitive.ObjectID) (int64, error)
	Save(ctx context.Context, item *models.InventoryItem) error
	Restock(ctx context.Context, id primitive.ObjectID, entry models.RestockEntry) (*models.InventoryItem, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ObjectStore is the remote file store.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, contentType, originalName, folder string) (storage.UploadResult, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// bucketNamer is implemented by object stores that know their bucket.
type bucketNamer interface {
	Bucket() string
}

// FileStore is the local-disk fallback.
type FileStore interface {
	Save(data []byte, originalName string) (storage.LocalFile, error)
	Read(filename string) ([]byte, error)
	Remove(filename string) error
}

type PrescriptionParser interface {
	ParseFromURL(ctx context.Context, fileURL string) (*parser.Result, error)
	ParseFromBuffer(ctx context.Context, data []byte, filename, mimeType string) (*parser.Result, error)
	ParseText(ctx context.Context, text string) (*parser.Result, error)
}

var (
	_ UserRepository         = (*repository.UserStore)(nil)
	_ PrescriptionRepository = (*repository.PrescriptionStore)(nil)
	_ MedicationRepository   = (*repository.MedicationStore)(nil)
	_ InventoryRepository    = (*repository.InventoryStore)(nil)
	_ ObjectStore            = (*storage.Gateway)(nil)
	_ bucketNamer            = (*storage.Gateway)(nil)
	_ FileStore              = (*storage.LocalDisk)(nil)
	_ PrescriptionParser     = (*parser.Client)(nil)
	_ notify.Sender          = (*notify.Mailer)(nil)
)
