package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/images"
	"github.com/dofliu/InduSpect/internal/measure"
	"github.com/dofliu/InduSpect/internal/session"
	"github.com/dofliu/InduSpect/pkg/geometry"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// errorStatus maps workflow errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, checklist.ErrNotFound),
		errors.Is(err, session.ErrNoQuickItem):
		return http.StatusNotFound
	case errors.Is(err, checklist.ErrInvalidTransition),
		errors.Is(err, checklist.ErrStaleCompletion),
		errors.Is(err, checklist.ErrNoImage),
		errors.Is(err, session.ErrInvalidMode),
		errors.Is(err, session.ErrNotAllCaptured),
		errors.Is(err, session.ErrReportInProgress),
		errors.Is(err, session.ErrNoConfirmedRecords):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidEdit),
		errors.Is(err, measure.ErrZeroReference),
		errors.Is(err, measure.ErrInvalidReferenceLength),
		errors.Is(err, measure.ErrWrongStage),
		errors.Is(err, geometry.ErrDegenerateViewport),
		errors.Is(err, images.ErrEmpty),
		errors.Is(err, image.ErrFormat):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoTasks):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrOffline):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeWorkflowError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

// readPhoto reads an uploaded photo from a multipart "photo" field or, for
// any other content type, from the raw body with ?name= as the file name.
func readPhoto(w http.ResponseWriter, r *http.Request, limit int64) (session.Photo, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		f, hdr, err := r.FormFile("photo")
		if err != nil {
			return session.Photo{}, fmt.Errorf("photo field required: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return session.Photo{}, err
		}
		return session.Photo{Data: data, Name: hdr.Filename}, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return session.Photo{}, err
	}
	return session.Photo{Data: data, Name: r.URL.Query().Get("name")}, nil
}

// hint returns the supplemental instruction from the form or query.
func hint(r *http.Request) string {
	return r.FormValue("hint")
}
