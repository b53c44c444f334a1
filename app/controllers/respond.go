package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"inkpost/app/models"
	"inkpost/app/render"
	"inkpost/app/services"
)

const (
	// multipartMemory is how much of a multipart body is buffered in memory.
	multipartMemory = 8 << 20
	// formOverhead is the room left for text fields next to a file part.
	formOverhead = 1 << 20
	// maxBodyBytes caps JSON and url-encoded bodies.
	maxBodyBytes = 1 << 20
)

// statusOverrides changes the status code of selected error kinds for
// one endpoint.
type statusOverrides map[error]int

// respondError maps a service error to its HTTP status. Unclassified
// errors are logged and reported as 500 without detail.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, overrides statusOverrides) {
	kind := services.KindOf(err)
	if kind == nil {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		render.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	status, ok := overrides[kind]
	if !ok {
		status = statusFor(kind)
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	render.Error(w, status, services.Message(err))
}

func statusFor(kind error) int {
	switch kind {
	case services.ErrValidation, services.ErrConflict, services.ErrPayloadTooLarge:
		return http.StatusUnprocessableEntity
	case services.ErrUnauthorized:
		return http.StatusUnauthorized
	case services.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// decodeInput fills dst from a JSON body or from form values. Form keys
// are matched against dst's json tags.
func decodeInput(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if isJSON(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		return nil
	}

	switch {
	case isMultipart(r) && r.MultipartForm == nil:
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return fmt.Errorf("invalid form: %w", err)
		}
	case !isMultipart(r):
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("invalid form: %w", err)
		}
	}

	values := make(map[string]string, len(r.Form))
	for k := range r.Form {
		values[k] = r.Form.Get(k)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// parseMultipart bounds the body to fit one file of limit bytes plus text
// fields, then parses it. A body that is too big is reported as a
// payload-too-large service error.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit services.AssetLimit) error {
	if !isMultipart(r) {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(limit.Bytes)+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return services.TooLargeError(limit)
		}
		return fmt.Errorf("invalid multipart body: %w", err)
	}
	return nil
}

// readUpload returns the file sent under field, or nil when there is none.
// At most limit+1 bytes are read so oversize files are still detected.
func readUpload(r *http.Request, field string, limit services.AssetLimit) (*models.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, int64(limit.Bytes)+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &models.Upload{Filename: header.Filename, Data: data}, nil
}

// rejectBody answers a request whose body could not be read. Service errors
// keep their usual mapping; anything else is a 400.
func rejectBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if services.KindOf(err) != nil {
		respondError(w, r, logger, err, nil)
		return
	}
	logger.DebugContext(r.Context(), "unreadable request body", "path", r.URL.Path, "error", err)
	render.Error(w, http.StatusBadRequest, "Invalid request body.")
}
