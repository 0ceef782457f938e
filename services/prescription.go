package services

import (
	"Ashray/apperr"
	"Ashray/cache"
	"Ashray/identity"
	"Ashray/metrics"
	"Ashray/models"
	"Ashray/notify"
	"Ashray/parser"
	"Ashray/repository"
	"Ashray/role"
	"Ashray/storage"
	"Ashray/util"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// FileSource is where a new prescription's file comes from. It is one of
// DirectReference, RawPayload or nil when no file was attached.
type FileSource interface {
	fileSource()
}

// DirectReference points at an object the client already put in the bucket
// using a presigned upload URL.
type DirectReference struct {
	URL string
	Key string
}

// RawPayload is a file that transits this service.
type RawPayload struct {
	Data     []byte
	Filename string
	MimeType string
}

func (DirectReference) fileSource() {}
func (RawPayload) fileSource()      {}

type CreatePrescriptionInput struct {
	PrescriptionNumber string
	DoctorName         string
	Hospital           string
	DoctorContact      string
	PrescriptionDate   time.Time
	Notes              string
	File               FileSource
}

type CreatePrescriptionResult struct {
	Prescription      *models.Prescription          `json:"prescription"`
	ParsedMedications []models.PrescribedMedication `json:"parsedMedications"`
	Message           string                        `json:"-"`
}

type ReparseResult struct {
	Prescription      *models.Prescription          `json:"prescription"`
	ParsedMedications []models.PrescribedMedication `json:"parsedMedications"`
	ParsingResult     models.ParsingResult          `json:"parsingResult"`
}

// ScheduleRequest selects line items by position. Times overrides the default
// single daily slot for every created schedule.
type ScheduleRequest struct {
	Indexes []int    `json:"medicationIndexes"`
	Times   []string `json:"times"`
}

type PrescriptionDeps struct {
	Prescriptions PrescriptionRepository
	Medications   MedicationRepository
	Users         UserRepository
	Objects       ObjectStore
	Files         FileStore
	Parser        PrescriptionParser
	Cache         cache.PrescriptionCache
	Mailer        notify.Sender
	Log           *zap.Logger
}

type PrescriptionService struct {
	prescriptions PrescriptionRepository
	medications   MedicationRepository
	users         UserRepository
	objects       ObjectStore
	files         FileStore
	parser        PrescriptionParser
	cache         cache.PrescriptionCache
	mailer        notify.Sender
	log           *zap.Logger
	now           func() time.Time
}

func NewPrescriptionService(d PrescriptionDeps) *PrescriptionService {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &PrescriptionService{
		prescriptions: d.Prescriptions,
		medications:   d.Medications,
		users:         d.Users,
		objects:       d.Objects,
		files:         d.Files,
		parser:        d.Parser,
		cache:         d.Cache,
		mailer:        d.Mailer,
		log:           d.Log,
		now:           time.Now,
	}
}

// storedFile is the outcome of placing a submission's file somewhere.
type storedFile struct {
	image   *models.PrescriptionImage
	payload *RawPayload
	path    string
}

/*
 * Only patients submit prescriptions
 * Validate the prescriber fields
 * Store the file: checked direct reference, S3 upload, or local disk when S3 fails
 * Build the pending prescription around the stored file
 * Try the parser; a failure is recorded on the prescription, never returned
 * Persist with a single insert
 */
func (s *PrescriptionService) Create(ctx context.Context, p *identity.Principal, in CreatePrescriptionInput) (*CreatePrescriptionResult, error) {
	if err := identity.Authorize(p, role.Patient); err != nil {
		return nil, err
	}
	doctor := util.StripHTML(in.DoctorName)
	if doctor == "" {
		return nil, apperr.Validation(util.DOCTOR_NAME_REQUIRED)
	}
	if in.PrescriptionDate.IsZero() {
		return nil, apperr.Validation(util.PRESCRIPTION_DATE_REQUIRED)
	}

	stored, err := s.storeFile(ctx, in.File)
	if err != nil {
		return nil, err
	}

	rx := models.NewPrescription(p.UserID(), in.PrescriptionNumber, models.PrescribedBy{
		Name:     doctor,
		Hospital: util.StripHTML(in.Hospital),
		Contact:  strings.TrimSpace(in.DoctorContact),
	}, in.PrescriptionDate)
	rx.Notes = util.StripHTML(in.Notes)
	rx.PrescriptionImage = stored.image

	var parsed []models.PrescribedMedication
	if stored.image != nil {
		meds, result := s.parse(ctx, stored.image, stored.payload)
		parsed = meds
		rx.Medications = append(rx.Medications, meds...)
		rx.ParsingResult = &result
	}

	if err := rx.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	if err := s.prescriptions.Insert(ctx, rx); err != nil {
		s.log.Error("prescription insert failed", zap.String("number", rx.PrescriptionNumber), zap.Error(err))
		return nil, err
	}
	s.log.Info("prescription created",
		zap.String("id", rx.ID.Hex()),
		zap.String("storage", stored.path),
		zap.Int("parsedMedications", len(parsed)))

	if parsed == nil {
		parsed = []models.PrescribedMedication{}
	}
	return &CreatePrescriptionResult{
		Prescription:      rx,
		ParsedMedications: parsed,
		Message:           createdMessage(stored, rx.ParsingResult),
	}, nil
}

func createdMessage(stored storedFile, result *models.ParsingResult) string {
	msg := util.PRESCRIPTION_CREATED_NO_FILE
	switch stored.path {
	case metrics.StorageS3, metrics.StorageDirect:
		msg = util.PRESCRIPTION_CREATED_CLOUD
	case metrics.StorageLocalFallback:
		msg = util.PRESCRIPTION_CREATED_LOCAL
	}
	if result == nil {
		return msg
	}
	if result.Success {
		return fmt.Sprintf("%s. %d medication(s) detected", msg, result.MedicationsFound)
	}
	return msg + ". Medications could not be detected automatically"
}

func (s *PrescriptionService) storeFile(ctx context.Context, src FileSource) (storedFile, error) {
	now := s.now()
	switch f := src.(type) {
	case DirectReference:
		ref, err := s.checkReference(f)
		if err != nil {
			return storedFile{}, err
		}
		metrics.StorageUploads.WithLabelValues(metrics.StorageDirect).Inc()
		return storedFile{
			image: &models.PrescriptionImage{URL: ref.URL, Key: ref.Key, UploadedAt: now, UploadedToS3: true},
			path:  metrics.StorageDirect,
		}, nil
	case RawPayload:
		name := storage.SanitizeFilename(f.Filename)
		contentType := f.MimeType
		if contentType == "" {
			contentType = storage.ContentTypeFor(name)
		}
		f.MimeType = contentType

		up, err := s.upload(ctx, f.Data, contentType, name)
		if err == nil {
			metrics.StorageUploads.WithLabelValues(metrics.StorageS3).Inc()
			return storedFile{
				image:   &models.PrescriptionImage{URL: up.URL, Key: up.Key, Filename: name, UploadedAt: now, UploadedToS3: true},
				payload: &f,
				path:    metrics.StorageS3,
			}, nil
		}
		s.log.Warn("s3 upload failed, keeping a local copy", zap.String("file", name), zap.Error(err))

		local, lerr := s.files.Save(f.Data, name)
		if lerr != nil {
			metrics.StorageUploads.WithLabelValues(metrics.StorageFailed).Inc()
			s.log.Error("local fallback failed", zap.String("file", name), zap.Error(lerr))
			return storedFile{}, apperr.Wrap(apperr.KindInternal, util.STORAGE_UNAVAILABLE, errors.Join(err, lerr))
		}
		metrics.StorageUploads.WithLabelValues(metrics.StorageLocalFallback).Inc()
		return storedFile{
			image:   &models.PrescriptionImage{URL: local.URL, Filename: local.Filename, UploadedAt: now, UploadedToS3: false},
			payload: &f,
			path:    metrics.StorageLocalFallback,
		}, nil
	default:
		return storedFile{path: "none"}, nil
	}
}

// checkReference accepts only keys the upload URL endpoint hands out. With a
// known bucket the URL must be that key's object URL; a blank URL is filled in.
func (s *PrescriptionService) checkReference(ref DirectReference) (DirectReference, error) {
	if !storage.IsPrescriptionKey(ref.Key) {
		s.log.Warn("direct file reference rejected", zap.String("key", ref.Key))
		return ref, apperr.Validation(util.INVALID_FILE_REFERENCE)
	}
	b, ok := s.objects.(bucketNamer)
	if !ok || b.Bucket() == "" {
		return ref, nil
	}
	want := storage.ObjectURL(b.Bucket(), ref.Key)
	if ref.URL == "" {
		ref.URL = want
	}
	if ref.URL != want {
		s.log.Warn("direct file reference url mismatch", zap.String("key", ref.Key), zap.String("url", ref.URL))
		return ref, apperr.Validation(util.INVALID_FILE_REFERENCE)
	}
	return ref, nil
}

func (s *PrescriptionService) upload(ctx context.Context, data []byte, contentType, name string) (storage.UploadResult, error) {
	if s.objects == nil {
		return storage.UploadResult{}, &storage.Error{Op: "upload", Code: storage.CodeNotConfigured, Message: "object storage is not configured"}
	}
	return s.objects.Upload(ctx, data, contentType, name, storage.PrescriptionFolder)
}

// parse runs the parser against a stored file. The returned result always
// describes the attempt; errors never escape.
func (s *PrescriptionService) parse(ctx context.Context, image *models.PrescriptionImage, payload *RawPayload) ([]models.PrescribedMedication, models.ParsingResult) {
	var (
		res *parser.Result
		err error
	)
	switch {
	case image.UploadedToS3:
		res, err = s.parser.ParseFromURL(ctx, s.fileURL(ctx, image))
	case payload != nil:
		res, err = s.parser.ParseFromBuffer(ctx, payload.Data, payload.Filename, payload.MimeType)
	case image.Filename != "":
		var data []byte
		data, err = s.files.Read(image.Filename)
		if err == nil {
			res, err = s.parser.ParseFromBuffer(ctx, data, image.Filename, storage.ContentTypeFor(image.Filename))
		}
	default:
		err = errors.New(util.PRESCRIPTION_HAS_NO_FILE)
	}
	return s.interpret(res, err)
}

func (s *PrescriptionService) interpret(res *parser.Result, err error) ([]models.PrescribedMedication, models.ParsingResult) {
	now := s.now()
	if err != nil {
		metrics.Parses.WithLabelValues(metrics.ParseError).Inc()
		s.log.Warn("prescription parsing failed", zap.Error(err))
		return nil, models.ParsingResult{Success: false, Error: err.Error(), ProcessedAt: now}
	}
	meds := parser.FormatForStorage(res.Medications, now)
	if len(meds) == 0 {
		metrics.Parses.WithLabelValues(metrics.ParseEmpty).Inc()
		msg := util.NO_MEDICATIONS_FOUND
		if res.Error != "" {
			msg = res.Error
		}
		if dropped := len(res.Medications); dropped > 0 {
			s.log.Warn("parser returned only unnamed medications", zap.Int("dropped", dropped))
		}
		return nil, models.ParsingResult{
			Success:             false,
			ExtractedTextLength: res.ExtractedTextLength,
			Error:               msg,
			ProcessedAt:         now,
		}
	}
	metrics.Parses.WithLabelValues(metrics.ParseSuccess).Inc()
	return meds, models.ParsingResult{
		Success:             true,
		MedicationsFound:    len(meds),
		ExtractedTextLength: res.ExtractedTextLength,
		ProcessedAt:         now,
	}
}

// fileURL prefers a presigned GET so the parser can read a private bucket.
func (s *PrescriptionService) fileURL(ctx context.Context, image *models.PrescriptionImage) string {
	if !storage.IsPrescriptionKey(image.Key) || s.objects == nil {
		return image.URL
	}
	signed, err := s.objects.SignedURL(ctx, image.Key, storage.DefaultSignedURLTTL)
	if err != nil {
		s.log.Warn("presign failed, using object url", zap.String("key", image.Key), zap.Error(err))
		return image.URL
	}
	return signed
}

// loadOwned fetches a prescription the caller may modify: its patient or an admin.
func (s *PrescriptionService) loadOwned(ctx context.Context, p *identity.Principal, id primitive.ObjectID) (*models.Prescription, error) {
	if err := identity.Authorize(p, role.Patient, role.Admin); err != nil {
		return nil, err
	}
	rx, err := s.prescriptions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rx == nil {
		return nil, apperr.NotFound(util.PRESCRIPTION_NOT_FOUND)
	}
	if !rx.IsOwnedBy(p.UserID()) && !p.Is(role.Admin) {
		return nil, apperr.Forbidden(util.NOT_AUTHORIZED_PRESCRIPTION)
	}
	return rx, nil
}

/*
 * Owner or admin only
 * Re-run the parser on the stored file
 * Append whatever it finds; earlier line items stay as they are
 */
func (s *PrescriptionService) Reparse(ctx context.Context, p *identity.Principal, id primitive.ObjectID) (*ReparseResult, error) {
	rx, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !rx.HasFile() {
		return nil, apperr.Validation(util.PRESCRIPTION_HAS_NO_FILE)
	}

	meds, result := s.parse(ctx, rx.PrescriptionImage, nil)
	updated, err := s.prescriptions.AppendMedications(ctx, id, meds, result)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	if meds == nil {
		meds = []models.PrescribedMedication{}
	}
	return &ReparseResult{Prescription: updated, ParsedMedications: meds, ParsingResult: result}, nil
}

/*
 * Owner or admin only
 * Run the extractor over text the patient typed from the prescription
 * Append whatever it finds, exactly like a re-parse of the file
 */
func (s *PrescriptionService) ParseTranscript(ctx context.Context, p *identity.Principal, id primitive.ObjectID, text string) (*ReparseResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation(util.PARSE_TEXT_REQUIRED)
	}
	if _, err := s.loadOwned(ctx, p, id); err != nil {
		return nil, err
	}

	meds, result := s.interpret(s.parser.ParseText(ctx, text))
	updated, err := s.prescriptions.AppendMedications(ctx, id, meds, result)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	if meds == nil {
		meds = []models.PrescribedMedication{}
	}
	return &ReparseResult{Prescription: updated, ParsedMedications: meds, ParsingResult: result}, nil
}

/*
 * Owner or admin only
 * Each selected line item becomes a medication schedule for the prescription's patient
 * Indexes outside the list are skipped
 * A failing item is logged and skipped; the rest still get created
 */
func (s *PrescriptionService) CreateMedicationSchedules(ctx context.Context, p *identity.Principal, id primitive.ObjectID, req ScheduleRequest) ([]models.Medication, error) {
	if len(req.Indexes) == 0 {
		return nil, apperr.Validation(util.NO_MEDICATIONS_SELECTED)
	}
	for _, t := range req.Times {
		if !models.IsTimeOfDay(t) {
			return nil, apperr.Validation(fmt.Sprintf("invalid schedule time %q, expected HH:MM", t))
		}
	}
	rx, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	times := req.Times
	if len(times) == 0 {
		times = []string{models.DefaultScheduleTime}
	}

	created := []models.Medication{}
	for _, idx := range req.Indexes {
		if idx < 0 || idx >= len(rx.Medications) {
			s.log.Debug("skipping unknown medication index", zap.Int("index", idx))
			continue
		}
		med := s.scheduleFor(rx, rx.Medications[idx], times)
		if err := med.Validate(); err != nil {
			s.log.Warn("medication schedule rejected", zap.String("name", med.Name), zap.Error(err))
			continue
		}
		if err := s.medications.Insert(ctx, med); err != nil {
			s.log.Warn("medication schedule insert failed", zap.String("name", med.Name), zap.Error(err))
			continue
		}
		created = append(created, *med)
	}
	s.log.Info("medication schedules created",
		zap.String("prescription", id.Hex()),
		zap.Int("requested", len(req.Indexes)),
		zap.Int("created", len(created)))
	return created, nil
}

func (s *PrescriptionService) scheduleFor(rx *models.Prescription, item models.PrescribedMedication, times []string) *models.Medication {
	now := s.now()
	dosage := item.Dosage
	if dosage == "" {
		dosage = "As prescribed"
	}
	schedule := make([]models.ScheduleSlot, 0, len(times))
	for _, t := range times {
		schedule = append(schedule, models.ScheduleSlot{Time: t})
	}
	source := rx.ID
	med := &models.Medication{
		Patient:            rx.Patient,
		Name:               item.Name,
		Dosage:             dosage,
		Frequency:          models.NormalizeFrequency(item.Frequency),
		Schedule:           schedule,
		Instructions:       item.Instructions,
		PrescribedBy:       rx.PrescribedBy.Name,
		SourcePrescription: &source,
		RefillReminder:     models.RefillReminder{Enabled: true},
		IsActive:           true,
	}
	med.ApplyDefaults(now)
	return med
}

// List scopes prescriptions by role: patients see their own, pharmacies what is
// assigned to them, admins everything.
func (s *PrescriptionService) List(ctx context.Context, p *identity.Principal) ([]models.Prescription, error) {
	if err := identity.Authorize(p, role.Patient, role.Pharmacy, role.Admin); err != nil {
		return nil, err
	}
	var f repository.PrescriptionFilter
	id := p.UserID()
	switch p.Role {
	case role.Patient:
		f.Patient = &id
	case role.Pharmacy:
		f.Pharmacy = &id
	}
	return s.prescriptions.List(ctx, f)
}

/*
 * Read through the cache
 * Patient owner, assigned pharmacy or admin may read
 * Attach a presigned URL when the file lives in S3
 */
func (s *PrescriptionService) Get(ctx context.Context, p *identity.Principal, id primitive.ObjectID) (*models.Prescription, error) {
	if p == nil {
		return nil, apperr.Auth(util.NOT_AUTHORIZED_NO_TOKEN)
	}
	rx, hit, err := s.cache.Get(ctx, id.Hex())
	if err != nil {
		s.log.Warn("prescription cache read failed", zap.String("id", id.Hex()), zap.Error(err))
	}
	if !hit {
		rx, err = s.prescriptions.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if rx == nil {
			return nil, apperr.NotFound(util.PRESCRIPTION_NOT_FOUND)
		}
		if err := s.cache.Set(ctx, rx); err != nil {
			s.log.Warn("prescription cache write failed", zap.String("id", id.Hex()), zap.Error(err))
		}
	}

	if !rx.IsOwnedBy(p.UserID()) && !rx.IsAssignedTo(p.UserID()) && !p.Is(role.Admin) {
		return nil, apperr.Forbidden(util.NOT_AUTHORIZED_PRESCRIPTION)
	}

	if img := rx.PrescriptionImage; img != nil && storage.IsPrescriptionKey(img.Key) && s.objects != nil {
		signed, err := s.objects.SignedURL(ctx, img.Key, storage.DefaultSignedURLTTL)
		if err != nil {
			s.log.Warn("presign failed", zap.String("key", img.Key), zap.Error(err))
		} else {
			img.SignedURL = signed
		}
	}
	return rx, nil
}

/*
 * Pharmacy or admin only
 * Set the status and assign the caller as the handling pharmacy
 * Email the patient when the prescription becomes ready
 */
func (s *PrescriptionService) UpdateStatus(ctx context.Context, p *identity.Principal, id primitive.ObjectID, status string) (*models.Prescription, error) {
	if err := identity.Authorize(p, role.Pharmacy, role.Admin); err != nil {
		return nil, err
	}
	if !models.IsValidStatus(status) {
		return nil, apperr.Validation(util.INVALID_STATUS)
	}
	rx, err := s.prescriptions.UpdateStatus(ctx, id, status, p.UserID())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.log.Info("prescription status updated", zap.String("id", id.Hex()), zap.String("status", status))

	if status == models.StatusReady {
		s.notifyReady(ctx, rx)
	}
	return rx, nil
}

func (s *PrescriptionService) notifyReady(ctx context.Context, rx *models.Prescription) {
	if s.mailer == nil || s.users == nil {
		return
	}
	patient, err := s.users.FindByID(ctx, rx.Patient)
	if err != nil || patient == nil {
		s.log.Warn("ready email skipped, patient not found", zap.String("prescription", rx.ID.Hex()), zap.Error(err))
		return
	}
	email := notify.BuildReadyEmail(patient.Email, notify.ReadyData{
		Name:               patient.Name,
		PrescriptionNumber: rx.PrescriptionNumber,
	})
	if err := s.mailer.Send(ctx, email); err != nil {
		if errors.Is(err, notify.ErrDisabled) {
			s.log.Debug("ready email skipped, mail disabled")
			return
		}
		s.log.Error("failed to send ready email", zap.String("to", patient.Email), zap.Error(err))
	}
}

/*
 * Owner or admin only
 * Remove the stored file, best effort
 * Delete the record and drop it from the cache
 */
func (s *PrescriptionService) Delete(ctx context.Context, p *identity.Principal, id primitive.ObjectID) error {
	rx, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return err
	}
	if img := rx.PrescriptionImage; img != nil {
		switch {
		case storage.IsPrescriptionKey(img.Key) && s.objects != nil:
			if err := s.objects.Delete(ctx, img.Key); err != nil {
				s.log.Warn("failed to delete file from s3", zap.String("key", img.Key), zap.Error(err))
			}
		case !img.UploadedToS3 && img.Filename != "":
			if err := s.files.Remove(img.Filename); err != nil {
				s.log.Warn("failed to delete local file", zap.String("file", img.Filename), zap.Error(err))
			}
		}
	}
	if err := s.prescriptions.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *PrescriptionService) invalidate(ctx context.Context, id primitive.ObjectID) {
	if err := s.cache.Invalidate(ctx, id.Hex()); err != nil {
		s.log.Warn("prescription cache invalidate failed", zap.String("id", id.Hex()), zap.Error(err))
	}
}
