package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"careerscan-engine/internal/ingest"
	"careerscan-engine/internal/store"
)

// Error codes returned in the "code" field of an error envelope.
const (
	CodeMissingFile       = "missing_file"
	CodeUnsupportedFormat = "unsupported_format"
	CodeMissingColumn     = "missing_column"
	CodeInvalidInput      = "invalid_input"
	CodeUploadFailed      = "upload_failed"
	CodeShuttingDown      = "shutting_down"
	CodeRunFailed         = "run_failed"
	CodeRunLookupFailed   = "run_lookup_failed"
	CodeRunNotFound       = "not_found"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodeDB                = "db_error"
	CodeNotRunning        = "not_running"
	CodeNoResults         = "no_results"
	CodeNotFinished       = "not_finished"
	CodeExportFailed      = "export_failed"
	CodeInvalidJSON       = "invalid_json"
	CodeSaveFailed        = "save_failed"
	CodeReloadFailed      = "reload_failed"
	CodeStreamUnsupported = "stream_unsupported"
	CodeInternal          = "internal_error"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope, tagged with the request id so a
// failed upload can be matched to its access log line.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		WriteError(w, r, http.StatusNotFound, CodeRunNotFound, "run not found")
		return
	}
	WriteError(w, r, http.StatusInternalServerError, CodeDB, err.Error())
}

// ingestErrorCode names why an uploaded sheet could not be read.
func ingestErrorCode(err error) string {
	if errors.Is(err, ingest.ErrMissingColumn) {
		return CodeMissingColumn
	}
	return CodeInvalidInput
}
