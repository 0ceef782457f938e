package storage

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

	contentTypes = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".pdf":  "application/pdf",
	}
)

// SanitizeFilename replaces every character outside [a-zA-Z0-9.-] with "_".
func SanitizeFilename(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// AllowedExt reports whether the file name carries an accepted prescription extension.
func AllowedExt(name string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ContentTypeFor guesses the MIME type from the extension.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AllowedMIME reports whether a multipart upload's declared type is an image or PDF we accept.
func AllowedMIME(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	for _, ct := range contentTypes {
		if mt == ct {
			return true
		}
	}
	return mt == "image/jpg"
}

// IsPrescriptionKey reports whether key has the shape ObjectKey produces for the
// prescriptions folder: "prescriptions/<name>" with one segment and an accepted extension.
func IsPrescriptionKey(key string) bool {
	name, ok := strings.CutPrefix(key, PrescriptionFolder+"/")
	if !ok || name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return false
	}
	return AllowedExt(name)
}
