package parser

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Ashray/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parsedBody = `{
	"success": true,
	"extracted_text_length": 412,
	"medications_found": 2,
	"medications": [
		{"name": "Amoxicillin", "dosage": "500mg", "frequency": "twice daily", "instructions": "Take 500mg twice daily", "parsed_at": "2026-03-01T10:15:30.123456"},
		{"name": "Paracetamol", "dosage": "650mg", "frequency": "as needed", "instructions": "", "parsed_at": ""}
	],
	"processed_at": "2026-03-01T10:15:31.000001"
}`

func TestParseFromURL(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parse-prescription", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, parsedBody)
	}))
	defer srv.Close()

	res, err := New(srv.URL+"/", time.Second).ParseFromURL(context.Background(), "https://bucket.s3.amazonaws.com/prescriptions/a.png")
	require.NoError(t, err)

	assert.Equal(t, "https://bucket.s3.amazonaws.com/prescriptions/a.png", got["file_url"])
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.MedicationsFound)
	assert.Equal(t, 412, res.ExtractedTextLength)
	require.Len(t, res.Medications, 2)
	assert.Equal(t, 2026, res.Medications[0].ParsedAt.Year())
	assert.True(t, res.Medications[1].ParsedAt.IsZero())
}

func TestParseFromBuffer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "rx.pdf", hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4", string(data))
		_, _ = io.WriteString(w, `{"success": true, "medications_found": 0, "medications": []}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).ParseFromBuffer(context.Background(), []byte("%PDF-1.4"), "rx.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, 0, res.MedicationsFound)
}

func TestParseText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parse-text", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Tab Metformin 500mg BD", body["text"])
		_, _ = io.WriteString(w, `{"success": true, "medications": [{"name": "Metformin", "dosage": "500mg", "frequency": "BD"}]}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).ParseText(context.Background(), "Tab Metformin 500mg BD")
	require.NoError(t, err)
	assert.Equal(t, 1, res.MedicationsFound)
}

func TestParse_ServiceErrors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error": "Unsupported file type"}`)
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second).ParseFromURL(context.Background(), "x")
		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadRequest, se.StatusCode)
		assert.Contains(t, se.Message, "Unsupported file type")
	})

	t.Run("undecodable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>gateway</html>`)
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second).ParseFromURL(context.Background(), "x")
		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusOK, se.StatusCode)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, err := New(srv.URL, 50*time.Millisecond).ParseFromURL(context.Background(), "x")
		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 0, se.StatusCode)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := New("http://127.0.0.1:1", time.Second).ParseText(context.Background(), "x")
		var se *ServiceError
		assert.ErrorAs(t, err, &se)
	})
}

func TestHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = io.WriteString(w, `{"status": "healthy"}`)
	}))
	defer healthy.Close()
	assert.True(t, New(healthy.URL, 0).HealthCheck(context.Background()))

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	assert.False(t, New(failing.URL, 0).HealthCheck(context.Background()))

	assert.False(t, New("http://127.0.0.1:1", 0).HealthCheck(context.Background()))
}

func TestFormatForStorage(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	parsed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	out := FormatForStorage([]Medication{
		{Name: "Amoxicillin", Dosage: "500mg", Frequency: "twice daily", Instructions: "After food", ParsedAt: Timestamp{parsed}},
		{Name: "Paracetamol", Dosage: "650mg", Frequency: "as needed"},
	}, now)

	require.Len(t, out, 2)
	assert.Equal(t, "After food", out[0].Instructions)
	assert.Equal(t, parsed, *out[0].ParsedAt)
	assert.Equal(t, "Take 650mg as needed", out[1].Instructions)
	assert.Equal(t, now, *out[1].ParsedAt)
	for _, m := range out {
		assert.True(t, m.IsActive)
		assert.Equal(t, models.SourceParser, m.Source)
		assert.Equal(t, 1, m.Quantity)
	}
}

func TestFormatForStorage_DropsUnnamedItems(t *testing.T) {
	out := FormatForStorage([]Medication{
		{Name: "", Dosage: "5mg"},
		{Name: "  Cetirizine ", Dosage: "10mg", Frequency: "once daily"},
		{Name: "   "},
	}, time.Now())

	require.Len(t, out, 1)
	assert.Equal(t, "Cetirizine", out[0].Name)
}
