package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/salesqa/salesqa/internal/export"
	"github.com/salesqa/salesqa/internal/history"
)

func handleListHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []history.Entry{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": deps.History.List()})
}

func handleClearHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History != nil {
		deps.History.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleGetHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	entry, ok := lookupEntry(deps, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func handleExportHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	entry, ok := lookupEntry(deps, w, r)
	if !ok {
		return
	}
	format, ok := parseFormat(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Render(&buf, format, entry.Outcome); err != nil {
		writeExportError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", entry.ID, format.Extension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func handleArchiveHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archiver == nil || !deps.Archiver.Enabled() {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "object store is not configured", false, nil)
		return
	}
	entry, ok := lookupEntry(deps, w, r)
	if !ok {
		return
	}
	format, ok := parseFormat(w, r)
	if !ok {
		return
	}

	info, err := deps.Archiver.Archive(r.Context(), entry, format)
	if err != nil {
		if errors.Is(err, export.ErrFailedOutcome) {
			writeExportError(w, r, err)
			return
		}
		writeError(r.Context(), w, http.StatusBadGateway, "ARCHIVE_FAILED", "failed to archive result", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func lookupEntry(deps Dependencies, w http.ResponseWriter, r *http.Request) (history.Entry, bool) {
	id := chi.URLParam(r, "id")
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotFound, "ENTRY_NOT_FOUND", "history entry not found", false, map[string]any{"id": id})
		return history.Entry{}, false
	}
	entry, err := deps.History.Get(id)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "ENTRY_NOT_FOUND", "history entry not found", false, map[string]any{"id": id})
		return history.Entry{}, false
	}
	return entry, true
}

func parseFormat(w http.ResponseWriter, r *http.Request) (export.Format, bool) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), false, nil)
		return "", false
	}
	return format, true
}

func writeExportError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, export.ErrFailedOutcome) {
		writeError(r.Context(), w, http.StatusConflict, "QUERY_FAILED", "the query for this entry failed, there is no result to export", false, nil)
		return
	}
	writeError(r.Context(), w, http.StatusUnprocessableEntity, "EXPORT_FAILED", "failed to render result", false, map[string]any{"details": err.Error()})
}
