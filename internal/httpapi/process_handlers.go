package httpapi

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"careerscan-engine/internal/config"
	"careerscan-engine/internal/ingest"
	"careerscan-engine/internal/store"

	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 32 << 20

type ProcessHandler struct {
	Runs   *RunManager
	DB     *sql.DB
	CfgVal *atomic.Value // stores config.Config
	Log    logrus.FieldLogger
}

// Process accepts a multipart upload in field "file", stores it under the
// uploads dir and starts a run over its organizations. With ?wait=true the
// response is sent once the run has finished and includes its log lines.
func (h ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		WriteError(w, r, http.StatusBadRequest, CodeMissingFile, "No file uploaded")
		return
	}
	defer file.Close()

	if _, err := ingest.FormatFromName(header.Filename); err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeUnsupportedFormat, err.Error())
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	path, err := saveUpload(cfg.UploadsPath(), header.Filename, file)
	if err != nil {
		h.Log.WithError(err).Error("[process] save upload failed")
		WriteError(w, r, http.StatusInternalServerError, CodeUploadFailed, "could not store upload")
		return
	}

	orgs, err := ingest.ReadFile(path)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ingestErrorCode(err), err.Error())
		return
	}

	reqID := RequestIDFrom(r.Context())
	run, err := h.Runs.Start(r.Context(), reqID, header.Filename, orgs)
	if errors.Is(err, ErrShuttingDown) {
		WriteError(w, r, http.StatusServiceUnavailable, CodeShuttingDown, err.Error())
		return
	}
	if err != nil {
		h.Log.WithError(err).Error("[process] start run failed")
		WriteError(w, r, http.StatusInternalServerError, CodeRunFailed, "could not start run")
		return
	}

	h.Log.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"source":  header.Filename,
		"total":   run.Total,
		"request": reqID,
	}).Info("[process] run started")

	resp := map[string]any{
		"ok":           true,
		"run_id":       run.ID,
		"total":        run.Total,
		"download_url": "/runs/" + run.ID + "/download",
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		WriteJSON(w, http.StatusAccepted, resp)
		return
	}

	if err := h.Runs.WaitRun(r.Context(), run.ID); err != nil {
		// client went away; the run keeps going
		return
	}
	done, err := store.GetRun(r.Context(), h.DB, run.ID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, CodeRunLookupFailed, err.Error())
		return
	}
	logs, err := store.ListLogs(r.Context(), h.DB, run.ID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, CodeRunLookupFailed, err.Error())
		return
	}
	resp["run"] = done
	resp["logs"] = logs
	WriteJSON(w, http.StatusOK, resp)
}

func saveUpload(dir, name string, src io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, filepath.Base(name))

	path := filepath.Join(dir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), base))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	return path, dst.Close()
}
