package httpapi

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"careerscan-engine/internal/export"
	"careerscan-engine/internal/store"
)

type RunsHandler struct {
	DB   *sql.DB
	Runs *RunManager
}

func (h RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := store.ListRuns(r.Context(), h.DB, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, CodeDB, err.Error())
		return
	}
	writeJSON(w, runs)
}

// ByPath serves /runs/{id}, /runs/{id}/cancel and /runs/{id}/download.
func (h RunsHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		WriteError(w, r, http.StatusNotFound, CodeRunNotFound, "run id required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case action == "cancel" && r.Method == http.MethodPost:
		h.cancel(w, r, id)
	case action == "download" && r.Method == http.MethodGet:
		run, err := store.GetRun(r.Context(), h.DB, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		h.serveDownload(w, r, run)
	case action == "" || action == "cancel" || action == "download":
		WriteError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	default:
		WriteError(w, r, http.StatusNotFound, CodeRunNotFound, "unknown run action")
	}
}

func (h RunsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	run, err := store.GetRun(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	logs, err := store.ListLogs(r.Context(), h.DB, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, CodeDB, err.Error())
		return
	}
	results, err := store.ListResults(r.Context(), h.DB, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, CodeDB, err.Error())
		return
	}
	writeJSON(w, map[string]any{"run": run, "logs": logs, "results": results})
}

func (h RunsHandler) cancel(w http.ResponseWriter, r *http.Request, id string) {
	if h.Runs.Cancel(id) {
		writeJSON(w, map[string]any{"ok": true, "run_id": id})
		return
	}
	if _, err := store.GetRun(r.Context(), h.DB, id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteError(w, r, http.StatusConflict, CodeNotRunning, "run is not running")
}

// Latest serves the result table of the most recently finished run.
func (h RunsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	run, err := store.LatestFinishedRun(r.Context(), h.DB)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			WriteError(w, r, http.StatusNotFound, CodeNoResults, "no finished run yet")
			return
		}
		WriteError(w, r, http.StatusInternalServerError, CodeDB, err.Error())
		return
	}
	h.serveDownload(w, r, run)
}

// serveDownload sends the stored result file when it exists in the requested
// format; otherwise it renders the persisted rows in that format.
func (h RunsHandler) serveDownload(w http.ResponseWriter, r *http.Request, run store.Run) {
	if run.Status == store.RunRunning {
		WriteError(w, r, http.StatusConflict, CodeNotFinished, "run is still running")
		return
	}

	want := r.URL.Query().Get("format")
	if want == "" && run.OutputPath != "" {
		want = strings.TrimPrefix(filepath.Ext(run.OutputPath), ".")
	}
	format, err := export.ParseFormat(want)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeUnsupportedFormat, err.Error())
		return
	}

	name := fmt.Sprintf("careers_%s.%s", run.ID, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	if run.OutputPath != "" && strings.EqualFold(filepath.Ext(run.OutputPath), "."+string(format)) {
		if f, err := os.Open(run.OutputPath); err == nil {
			defer f.Close()
			modTime := time.Time{}
			if st, err := f.Stat(); err == nil {
				modTime = st.ModTime()
			}
			http.ServeContent(w, r, name, modTime, f)
			return
		}
	}

	rows, err := store.ListResults(r.Context(), h.DB, run.ID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, CodeDB, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, rows, format); err != nil {
		WriteError(w, r, http.StatusInternalServerError, CodeExportFailed, err.Error())
		return
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(buf.Bytes()))
}
