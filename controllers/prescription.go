package controllers

import (
	"Ashray/apperr"
	"Ashray/middleware"
	"Ashray/role"
	"Ashray/services"
	"Ashray/storage"
	"Ashray/util"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// MaxPrescriptionFile caps a multipart prescription upload.
const MaxPrescriptionFile = 10 << 20

const prescriptionFileField = "prescriptionFile"

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

type PrescriptionController struct {
	svc *services.PrescriptionService
}

// submission is the JSON form of a new prescription. FileURL/FileKey refer to an
// object already uploaded through a presigned URL.
type submission struct {
	PrescriptionNumber string `json:"prescriptionNumber" form:"prescriptionNumber"`
	DoctorName         string `json:"doctorName" form:"doctorName"`
	Hospital           string `json:"hospital" form:"hospital"`
	DoctorContact      string `json:"doctorContact" form:"doctorContact"`
	PrescriptionDate   string `json:"prescriptionDate" form:"prescriptionDate"`
	Notes              string `json:"notes" form:"notes"`
	FileURL            string `json:"fileUrl" form:"fileUrl"`
	FileKey            string `json:"fileKey" form:"fileKey"`
}

type transcriptBody struct {
	Text string `json:"text" binding:"required"`
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

func Prescription(router gin.IRouter, svc *services.PrescriptionService) {
	ctl := &PrescriptionController{svc: svc}
	prescription := router.Group("/prescriptions")
	{
		prescription.GET("", ctl.List)
		prescription.POST("", middleware.RequireRole(role.Patient), ctl.Create)
		prescription.GET("/:id", ctl.Get)
		prescription.PUT("/:id/status", middleware.RequireRole(role.Pharmacy, role.Admin), ctl.UpdateStatus)
		prescription.DELETE("/:id", ctl.Delete)
		prescription.POST("/:id/parse", ctl.Parse)
		prescription.POST("/:id/parse-text", ctl.ParseText)
		prescription.POST("/:id/create-medications", ctl.CreateMedications)
	}
}

func (ctl *PrescriptionController) List(c *gin.Context) {
	rxs, err := ctl.svc.List(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.ListResponse(rxs, len(rxs)))
}

/*
* Multipart carries the file itself in prescriptionFile
* JSON carries a reference to an object uploaded with a presigned URL
* Either way the service stores, parses and persists in one call
 */
func (ctl *PrescriptionController) Create(c *gin.Context) {
	in, err := readSubmission(c)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := ctl.svc.Create(c.Request.Context(), middleware.CurrentPrincipal(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, util.MessageResponse(res.Message, res))
}

func readSubmission(c *gin.Context) (services.CreatePrescriptionInput, error) {
	var body submission
	var file services.FileSource

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxPrescriptionFile+1<<20)
		if err := c.ShouldBind(&body); err != nil {
			return services.CreatePrescriptionInput{}, apperr.Wrap(apperr.KindValidation, util.INVALID_REQUEST_BODY, err)
		}
		payload, err := readUpload(c)
		if err != nil {
			return services.CreatePrescriptionInput{}, err
		}
		if payload != nil {
			file = *payload
		}
	} else if err := c.ShouldBindJSON(&body); err != nil {
		return services.CreatePrescriptionInput{}, apperr.Wrap(apperr.KindValidation, util.INVALID_REQUEST_BODY, err)
	}

	if file == nil && (body.FileURL != "" || body.FileKey != "") {
		file = services.DirectReference{URL: strings.TrimSpace(body.FileURL), Key: strings.TrimSpace(body.FileKey)}
	}

	date, err := parseDate(body.PrescriptionDate)
	if err != nil {
		return services.CreatePrescriptionInput{}, err
	}
	return services.CreatePrescriptionInput{
		PrescriptionNumber: body.PrescriptionNumber,
		DoctorName:         body.DoctorName,
		Hospital:           body.Hospital,
		DoctorContact:      body.DoctorContact,
		PrescriptionDate:   date,
		Notes:              body.Notes,
		File:               file,
	}, nil
}

// readUpload returns the multipart file, or nil when none was attached. The
// type is sniffed from the content, not trusted from the client.
func readUpload(c *gin.Context) (*services.RawPayload, error) {
	header, err := c.FormFile(prescriptionFileField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, util.INVALID_REQUEST_BODY, err)
	}
	if header.Size > MaxPrescriptionFile {
		return nil, apperr.Validation(util.FILE_TOO_LARGE)
	}
	f, err := header.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, util.INVALID_REQUEST_BODY, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxPrescriptionFile+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, util.INVALID_REQUEST_BODY, err)
	}
	if len(data) > MaxPrescriptionFile {
		return nil, apperr.Validation(util.FILE_TOO_LARGE)
	}

	mt := mimetype.Detect(data)
	if !storage.AllowedMIME(mt.String()) {
		return nil, apperr.Validation(util.INVALID_FILE_TYPE)
	}
	name := filepath.Base(header.Filename)
	if !storage.AllowedExt(name) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + mt.Extension()
	}
	return &services.RawPayload{Data: data, Filename: name, MimeType: mt.String()}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation(util.INVALID_DATE)
}

func (ctl *PrescriptionController) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rx, err := ctl.svc.Get(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(rx))
}

func (ctl *PrescriptionController) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body statusBody
	if !bind(c, &body) {
		return
	}
	rx, err := ctl.svc.UpdateStatus(c.Request.Context(), middleware.CurrentPrincipal(c), id, body.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.STATUS_UPDATED, rx))
}

func (ctl *PrescriptionController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := ctl.svc.Delete(c.Request.Context(), middleware.CurrentPrincipal(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.PRESCRIPTION_DELETED, nil))
}

// Parse re-runs extraction on the stored file and appends what it finds.
func (ctl *PrescriptionController) Parse(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := ctl.svc.Reparse(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	msg := util.PARSED_MEDICATIONS_ADDED
	if !res.ParsingResult.Success {
		msg = util.PARSING_FAILED
	}
	c.JSON(http.StatusOK, util.MessageResponse(msg, res))
}

// ParseText extracts medications from a typed transcription of the prescription.
func (ctl *PrescriptionController) ParseText(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body transcriptBody
	if !bind(c, &body) {
		return
	}
	res, err := ctl.svc.ParseTranscript(c.Request.Context(), middleware.CurrentPrincipal(c), id, body.Text)
	if err != nil {
		fail(c, err)
		return
	}
	msg := util.PARSED_MEDICATIONS_ADDED
	if !res.ParsingResult.Success {
		msg = util.PARSING_FAILED
	}
	c.JSON(http.StatusOK, util.MessageResponse(msg, res))
}

func (ctl *PrescriptionController) CreateMedications(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ScheduleRequest
	if !bind(c, &req) {
		return
	}
	created, err := ctl.svc.CreateMedicationSchedules(c.Request.Context(), middleware.CurrentPrincipal(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	count := len(created)
	c.JSON(http.StatusCreated, util.Response{
		Success: true,
		Message: util.SCHEDULES_CREATED,
		Count:   &count,
		Data:    created,
	})
}
