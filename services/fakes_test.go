package services

import (
	"Ashray/apperr"
	"Ashray/identity"
	"Ashray/models"
	"Ashray/notify"
	"Ashray/parser"
	"Ashray/repository"
	"Ashray/storage"
	"Ashray/util"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func principal(r string) *identity.Principal {
	return &identity.Principal{User: &models.User{ID: primitive.NewObjectID(), Role: r, IsActive: true}, Role: r}
}

type fakePrescriptions struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Prescription
}

func newFakePrescriptions() *fakePrescriptions {
	return &fakePrescriptions{items: map[primitive.ObjectID]*models.Prescription{}}
}

func (f *fakePrescriptions) put(p models.Prescription) *models.Prescription {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.items[p.ID] = &p
	return &p
}

func (f *fakePrescriptions) Insert(_ context.Context, p *models.Prescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.PrescriptionNumber == p.PrescriptionNumber {
			return apperr.Conflict(util.PRESCRIPTION_NUMBER_EXISTS)
		}
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakePrescriptions) FindByID(_ context.Context, id primitive.ObjectID) (*models.Prescription, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePrescriptions) List(_ context.Context, flt repository.PrescriptionFilter) ([]models.Prescription, error) {
	out := []models.Prescription{}
	for _, p := range f.items {
		if flt.Patient != nil && p.Patient != *flt.Patient {
			continue
		}
		if flt.Pharmacy != nil && (p.Pharmacy == nil || *p.Pharmacy != *flt.Pharmacy) {
			continue
		}
		if flt.Status != "" && p.Status != flt.Status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if flt.Limit > 0 && int64(len(out)) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakePrescriptions) AppendMedications(_ context.Context, id primitive.ObjectID, meds []models.PrescribedMedication, result models.ParsingResult) (*models.Prescription, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, apperr.NotFound(util.PRESCRIPTION_NOT_FOUND)
	}
	p.Medications = append(p.Medications, meds...)
	p.ParsingResult = &result
	cp := *p
	return &cp, nil
}

func (f *fakePrescriptions) UpdateStatus(_ context.Context, id primitive.ObjectID, status string, pharmacy primitive.ObjectID) (*models.Prescription, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, apperr.NotFound(util.PRESCRIPTION_NOT_FOUND)
	}
	p.Status = status
	p.Pharmacy = &pharmacy
	cp := *p
	return &cp, nil
}

func (f *fakePrescriptions) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.items[id]; !ok {
		return apperr.NotFound(util.PRESCRIPTION_NOT_FOUND)
	}
	delete(f.items, id)
	return nil
}

func (f *fakePrescriptions) CountByStatus(_ context.Context, pharmacy *primitive.ObjectID) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, st := range models.PrescriptionStatuses {
		counts[st] = 0
	}
	for _, p := range f.items {
		if pharmacy != nil && (p.Pharmacy == nil || *p.Pharmacy != *pharmacy) {
			continue
		}
		counts[p.Status]++
	}
	return counts, nil
}

type fakeMedications struct {
	items  map[primitive.ObjectID]*models.Medication
	failOn string
}

func newFakeMedications() *fakeMedications {
	return &fakeMedications{items: map[primitive.ObjectID]*models.Medication{}}
}

func (f *fakeMedications) put(m models.Medication) *models.Medication {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	f.items[m.ID] = &m
	return &m
}

func (f *fakeMedications) Insert(_ context.Context, m *models.Medication) error {
	if f.failOn != "" && m.Name == f.failOn {
		return errors.New("write concern error")
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	cp := *m
	f.items[m.ID] = &cp
	return nil
}

func (f *fakeMedications) FindByID(_ context.Context, id primitive.ObjectID) (*models.Medication, error) {
	m, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMedications) ListByPatient(_ context.Context, patient primitive.ObjectID, activeOnly bool) ([]models.Medication, error) {
	out := []models.Medication{}
	for _, m := range f.items {
		if m.Patient == patient && (!activeOnly || m.IsActive) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMedications) ListActive(_ context.Context) ([]models.Medication, error) {
	out := []models.Medication{}
	for _, m := range f.items {
		if m.IsActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMedications) Save(_ context.Context, m *models.Medication) error {
	if _, ok := f.items[m.ID]; !ok {
		return apperr.NotFound(util.MEDICATION_NOT_FOUND)
	}
	cp := *m
	f.items[m.ID] = &cp
	return nil
}

func (f *fakeMedications) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.items[id]; !ok {
		return apperr.NotFound(util.MEDICATION_NOT_FOUND)
	}
	delete(f.items, id)
	return nil
}

type fakeInventory struct {
	items map[primitive.ObjectID]*models.InventoryItem
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{items: map[primitive.ObjectID]*models.InventoryItem{}}
}

func (f *fakeInventory) Insert(_ context.Context, item *models.InventoryItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeInventory) FindByID(_ context.Context, id primitive.ObjectID) (*models.InventoryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (f *fakeInventory) List(_ context.Context, flt repository.InventoryFilter) ([]models.InventoryItem, error) {
	out := []models.InventoryItem{}
	for _, item := range f.items {
		if item.Pharmacy == flt.Pharmacy && (flt.Category == "" || item.Category == flt.Category) {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeInventory) LowStock(_ context.Context, pharmacy primitive.ObjectID) ([]models.InventoryItem, error) {
	out := []models.InventoryItem{}
	for _, item := range f.items {
		if item.Pharmacy == pharmacy && item.NeedsReorder() {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeInventory) Count(_ context.Context, pharmacy primitive.ObjectID) (int64, error) {
	var n int64
	for _, item := range f.items {
		if item.Pharmacy == pharmacy {
			n++
		}
	}
	return n, nil
}

func (f *fakeInventory) Save(_ context.Context, item *models.InventoryItem) error {
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeInventory) Restock(_ context.Context, id primitive.ObjectID, entry models.RestockEntry) (*models.InventoryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, apperr.NotFound(util.INVENTORY_ITEM_NOT_FOUND)
	}
	item.Quantity += entry.Quantity
	item.RestockHistory = append(item.RestockHistory, entry)
	cp := *item
	return &cp, nil
}

func (f *fakeInventory) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(f.items, id)
	return nil
}

type fakeUsers struct {
	items map[primitive.ObjectID]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{items: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		f.items[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return f.items[id], nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.items {
		if u.Email == models.NormalizeEmail(email) {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.items[u.ID] = u
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error) {
	u, ok := f.items[id]
	if !ok {
		return nil, apperr.UserNotFound(util.USER_NOT_FOUND)
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Address != nil {
		u.Address = upd.Address
	}
	return u, nil
}

func (f *fakeUsers) SetEmailVerified(_ context.Context, email string) error {
	for _, u := range f.items {
		if u.Email == models.NormalizeEmail(email) {
			u.EmailVerified = true
		}
	}
	return nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	if u, ok := f.items[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

type fakeObjects struct {
	uploadErr error
	signErr   error
	uploads   int
	deleted   []string
	presigned []string
}

func (f *fakeObjects) Bucket() string { return "rx-bucket" }

func (f *fakeObjects) Upload(_ context.Context, _ []byte, _, originalName, folder string) (storage.UploadResult, error) {
	if f.uploadErr != nil {
		return storage.UploadResult{}, f.uploadErr
	}
	f.uploads++
	key := folder + "/1700000000000-" + originalName
	return storage.UploadResult{URL: storage.ObjectURL("rx-bucket", key), Key: key, Bucket: "rx-bucket"}, nil
}

func (f *fakeObjects) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example/" + key, nil
}

func (f *fakeObjects) PresignUpload(_ context.Context, key, contentType string, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.presigned = append(f.presigned, key+"|"+contentType)
	return "https://upload.example/" + key, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeFiles struct {
	saved   map[string][]byte
	saveErr error
	removed []string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{saved: map[string][]byte{}}
}

func (f *fakeFiles) Save(data []byte, originalName string) (storage.LocalFile, error) {
	if f.saveErr != nil {
		return storage.LocalFile{}, f.saveErr
	}
	name := "prescription-1-" + originalName
	f.saved[name] = data
	return storage.LocalFile{Filename: name, Path: "/tmp/" + name, URL: storage.LocalURL(name)}, nil
}

func (f *fakeFiles) Read(filename string) ([]byte, error) {
	data, ok := f.saved[filename]
	if !ok {
		return nil, errors.New("local storage: not found")
	}
	return data, nil
}

func (f *fakeFiles) Remove(filename string) error {
	f.removed = append(f.removed, filename)
	delete(f.saved, filename)
	return nil
}

type fakeParser struct {
	result     *parser.Result
	err        error
	urlCalls   []string
	bufferHits int
	texts      []string
}

func (f *fakeParser) ParseFromURL(_ context.Context, fileURL string) (*parser.Result, error) {
	f.urlCalls = append(f.urlCalls, fileURL)
	return f.result, f.err
}

func (f *fakeParser) ParseFromBuffer(_ context.Context, _ []byte, _, _ string) (*parser.Result, error) {
	f.bufferHits++
	return f.result, f.err
}

func (f *fakeParser) ParseText(_ context.Context, text string) (*parser.Result, error) {
	f.texts = append(f.texts, text)
	return f.result, f.err
}

func parsed(names ...string) *parser.Result {
	res := &parser.Result{Success: true, ExtractedTextLength: 120}
	for _, n := range names {
		res.Medications = append(res.Medications, parser.Medication{Name: n, Dosage: "500mg", Frequency: "twice daily"})
	}
	res.MedicationsFound = len(res.Medications)
	return res
}

type fakeMailer struct {
	sent []notify.Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, e notify.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}
