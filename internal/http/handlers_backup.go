package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"fincontrol/internal/backup"
	"fincontrol/internal/log"
	"fincontrol/internal/report"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc := s.deps.Backups.Export(r.Context())
	var buf bytes.Buffer
	if err := s.deps.Backups.Encode(&buf, doc); err != nil {
		writeError(w, r, err)
		return
	}
	sendAttachment(w, "application/json", backup.FileName(s.now()), buf.Bytes())
}

// handleImport replaces the ledger with the uploaded document. A document
// that cannot be decoded changes nothing.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := s.deps.Backups.Restore(r.Context(), body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, fmt.Sprintf("backup exceeds %d bytes", tooLarge.Limit)).Write(w, r)
			return
		}
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Backup restored")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Reports.WriteCSV(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	sendAttachment(w, "text/csv; charset=utf-8", report.FileName(report.FilePrefix, "csv", s.now()), buf.Bytes())
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Reports.WriteXLSX(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	sendAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		report.FileName(report.FilePrefix, "xlsx", s.now()), buf.Bytes())
}

// sendAttachment writes a fully rendered download, so a failure while
// rendering never produces a truncated file with a 200 status.
func sendAttachment(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
