package controllers

import (
	"Ashray/apperr"
	"Ashray/identity"
	"Ashray/middleware"
	"Ashray/models"
	"Ashray/parser"
	"Ashray/repository"
	"Ashray/role"
	"Ashray/services"
	"Ashray/storage"
	"Ashray/util"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type tokens map[string]*identity.Principal

func (t tokens) Verify(_ context.Context, token string) (*identity.Principal, error) {
	p, ok := t[token]
	if !ok {
		return nil, apperr.TokenInvalid(util.INVALID_TOKEN)
	}
	return p, nil
}

type memPrescriptions struct {
	items map[primitive.ObjectID]models.Prescription
}

func (m *memPrescriptions) Insert(_ context.Context, p *models.Prescription) error {
	p.ID = primitive.NewObjectID()
	m.items[p.ID] = *p
	return nil
}

func (m *memPrescriptions) FindByID(_ context.Context, id primitive.ObjectID) (*models.Prescription, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPrescriptions) List(_ context.Context, f repository.PrescriptionFilter) ([]models.Prescription, error) {
	out := []models.Prescription{}
	for _, p := range m.items {
		if f.Patient == nil || p.Patient == *f.Patient {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPrescriptions) AppendMedications(_ context.Context, id primitive.ObjectID, meds []models.PrescribedMedication, result models.ParsingResult) (*models.Prescription, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound(util.PRESCRIPTION_NOT_FOUND)
	}
	p.Medications = append(p.Medications, meds...)
	p.ParsingResult = &result
	m.items[id] = p
	return &p, nil
}

func (m *memPrescriptions) UpdateStatus(context.Context, primitive.ObjectID, string, primitive.ObjectID) (*models.Prescription, error) {
	return nil, apperr.NotFound(util.PRESCRIPTION_NOT_FOUND)
}

func (m *memPrescriptions) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(m.items, id)
	return nil
}

func (m *memPrescriptions) CountByStatus(context.Context, *primitive.ObjectID) (map[string]int64, error) {
	return map[string]int64{}, nil
}

type harness struct {
	router  *gin.Engine
	rxs     *memPrescriptions
	parsed  []string
	paths   []string
	patient *identity.Principal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{rxs: &memPrescriptions{items: map[primitive.ObjectID]models.Prescription{}}}
	parserSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.parsed = append(h.parsed, r.Header.Get("Content-Type"))
		h.paths = append(h.paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(parser.Result{
			Success:             true,
			ExtractedTextLength: 80,
			MedicationsFound:    1,
			Medications:         []parser.Medication{{Name: "Amoxicillin", Dosage: "250mg", Frequency: "thrice daily"}},
		})
	}))
	t.Cleanup(parserSrv.Close)

	h.patient = &identity.Principal{User: &models.User{ID: primitive.NewObjectID(), Role: role.Patient}, Role: role.Patient}
	pharmacy := &identity.Principal{User: &models.User{ID: primitive.NewObjectID(), Role: role.Pharmacy}, Role: role.Pharmacy}

	rxSvc := services.NewPrescriptionService(services.PrescriptionDeps{
		Prescriptions: h.rxs,
		Files:         storage.NewLocalDisk(t.TempDir()),
		Parser:        parser.New(parserSrv.URL, 5*time.Second),
	})

	r := gin.New()
	api := r.Group("/api", middleware.Protect(tokens{"patient": h.patient, "pharmacy": pharmacy}))
	Prescription(api, rxSvc)
	Inventory(api, services.NewInventoryService(nil, nil))
	h.router = r
	return h
}

func (h *harness) do(req *http.Request, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	body := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func multipartSubmission(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("doctorName", "Dr. Rao"))
	require.NoError(t, mw.WriteField("prescriptionDate", "2026-02-10"))
	require.NoError(t, mw.WriteField("hospital", "City Clinic"))
	if content != nil {
		part, err := mw.CreateFormFile(prescriptionFileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/prescriptions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

func TestCreatePrescription_MultipartFallsBackToLocalDisk(t *testing.T) {
	h := newHarness(t)

	w, body := h.do(multipartSubmission(t, "scan.pdf", pdfBytes), "patient")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["message"], util.PRESCRIPTION_CREATED_LOCAL)

	data := body["data"].(map[string]interface{})
	rx := data["prescription"].(map[string]interface{})
	image := rx["prescriptionImage"].(map[string]interface{})
	assert.Equal(t, false, image["uploadedToS3"])
	assert.Contains(t, image["url"], "/uploads/prescriptions/")
	assert.Len(t, data["parsedMedications"], 1)
	assert.Equal(t, "pending", rx["status"])

	require.Len(t, h.parsed, 1)
	assert.Contains(t, h.parsed[0], "multipart/form-data")
	assert.Len(t, h.rxs.items, 1)
}

func TestCreatePrescription_RejectsUnsupportedContent(t *testing.T) {
	h := newHarness(t)

	w, body := h.do(multipartSubmission(t, "notes.pdf", []byte("just some text, not a pdf")), "patient")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, util.INVALID_FILE_TYPE, body["message"])
	assert.Empty(t, h.rxs.items)
}

func TestCreatePrescription_JSONDirectReference(t *testing.T) {
	h := newHarness(t)

	payload := `{"doctorName":"Dr. Rao","prescriptionDate":"2026-02-10T09:30:00Z","fileUrl":"https://rx-bucket.s3.amazonaws.com/prescriptions/1-a.png","fileKey":"prescriptions/1-a.png"}`
	req := httptest.NewRequest(http.MethodPost, "/api/prescriptions", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")

	w, body := h.do(req, "patient")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, body["message"], util.PRESCRIPTION_CREATED_CLOUD)
	require.Len(t, h.parsed, 1)
	assert.Equal(t, "application/json", h.parsed[0])
}

func TestCreatePrescription_ForeignFileKeyRejected(t *testing.T) {
	h := newHarness(t)

	payload := `{"doctorName":"Dr. Rao","prescriptionDate":"2026-02-10","fileKey":"other/victim-owned.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/api/prescriptions", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")

	w, body := h.do(req, "patient")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, util.INVALID_FILE_REFERENCE, body["message"])
	assert.Empty(t, h.rxs.items)
	assert.Empty(t, h.parsed)
}

func TestParseText_AppendsFromTranscription(t *testing.T) {
	h := newHarness(t)
	rx := models.NewPrescription(h.patient.UserID(), "RX-TEXT-1", models.PrescribedBy{Name: "Dr. Rao"}, time.Now())
	require.NoError(t, h.rxs.Insert(context.Background(), rx))

	req := httptest.NewRequest(http.MethodPost, "/api/prescriptions/"+rx.ID.Hex()+"/parse-text", bytes.NewBufferString(`{"text":"Tab Amoxicillin 250mg TID"}`))
	req.Header.Set("Content-Type", "application/json")
	w, body := h.do(req, "patient")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, util.PARSED_MEDICATIONS_ADDED, body["message"])
	assert.Equal(t, []string{"/parse-text"}, h.paths)
	assert.Len(t, h.rxs.items[rx.ID].Medications, 1)

	req = httptest.NewRequest(http.MethodPost, "/api/prescriptions/"+rx.ID.Hex()+"/parse-text", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = h.do(req, "patient")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePrescription_Validation(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/api/prescriptions", bytes.NewBufferString(`{"doctorName":"Dr. Rao","prescriptionDate":"10/02/2026"}`))
	req.Header.Set("Content-Type", "application/json")
	w, body := h.do(req, "patient")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, util.INVALID_DATE, body["message"])

	req = httptest.NewRequest(http.MethodPost, "/api/prescriptions", bytes.NewBufferString(`{"prescriptionDate":"2026-02-10"}`))
	req.Header.Set("Content-Type", "application/json")
	w, body = h.do(req, "patient")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, util.DOCTOR_NAME_REQUIRED, body["message"])

	w, _ = h.do(multipartSubmission(t, "scan.pdf", pdfBytes), "pharmacy")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoutes_AuthAndRoleGates(t *testing.T) {
	h := newHarness(t)

	w, body := h.do(httptest.NewRequest(http.MethodGet, "/api/prescriptions", nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])

	w, _ = h.do(httptest.NewRequest(http.MethodGet, "/api/inventory", nil), "patient")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = h.do(httptest.NewRequest(http.MethodGet, "/api/prescriptions/not-an-id", nil), "patient")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, util.INVALID_ID, body["message"])

	w, _ = h.do(httptest.NewRequest(http.MethodGet, "/api/prescriptions/"+primitive.NewObjectID().Hex(), nil), "patient")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPrescriptions_Envelope(t *testing.T) {
	h := newHarness(t)
	rx := models.NewPrescription(h.patient.UserID(), "RX-1", models.PrescribedBy{Name: "Dr"}, time.Now())
	require.NoError(t, h.rxs.Insert(context.Background(), rx))

	w, body := h.do(httptest.NewRequest(http.MethodGet, "/api/prescriptions", nil), "patient")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])
	assert.Len(t, body["data"], 1)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-02-10")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Day())

	d, err = parseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = parseDate("tomorrow")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

type parserStatus bool

func (p parserStatus) HealthCheck(context.Context) bool { return bool(p) }

func TestHealth_ReportsParserWithoutFailing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, up := range []bool{true, false} {
		r := gin.New()
		Health(r, parserStatus(up))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		body := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, up, body["parser"])
	}
}
