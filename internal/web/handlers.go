package web

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/nexcrm/importer/internal/importer"
	"github.com/nexcrm/importer/internal/logging"
	"github.com/nexcrm/importer/internal/schema"
	"github.com/nexcrm/importer/internal/web/middleware"
)

// snapshotResponse is the JSON view of a session snapshot.
type snapshotResponse struct {
	ID              string                       `json:"id"`
	State           string                       `json:"state"`
	FileName        string                       `json:"fileName,omitempty"`
	Headers         []string                     `json:"headers,omitempty"`
	Mapping         map[string]string            `json:"mapping,omitempty"`
	MappingWarnings []string                     `json:"mappingWarnings,omitempty"`
	TotalRows       int                          `json:"totalRows"`
	ValidRows       int                          `json:"validRows"`
	InvalidRows     int                          `json:"invalidRows"`
	Records         []recordResponse             `json:"records,omitempty"`
	Progress        importer.Progress            `json:"progress"`
	Outcomes        []importer.SubmissionOutcome `json:"outcomes,omitempty"`
}

type recordResponse struct {
	Row     int            `json:"row"`
	Fields  map[string]any `json:"fields"`
	Errors  []string       `json:"errors,omitempty"`
	IsValid bool           `json:"isValid"`
}

func toSnapshotResponse(snap importer.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		ID:              snap.ID,
		State:           snap.State.String(),
		FileName:        snap.FileName,
		Headers:         snap.Headers,
		Mapping:         snap.Mapping,
		MappingWarnings: snap.MappingWarnings,
		TotalRows:       snap.TotalRows,
		ValidRows:       snap.ValidRows,
		InvalidRows:     snap.InvalidRows,
		Progress:        snap.Progress,
		Outcomes:        snap.Outcomes,
	}
	for _, r := range snap.Records {
		resp.Records = append(resp.Records, recordResponse{
			Row: r.RowIndex, Fields: r.Fields, Errors: r.Errors, IsValid: r.IsValid,
		})
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListFields returns the target schema for mapping UIs.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	type fieldResponse struct {
		Key      string   `json:"key"`
		Label    string   `json:"label"`
		Required bool     `json:"required"`
		Kind     string   `json:"kind"`
		Options  []string `json:"options,omitempty"`
	}

	fields := schema.Fields()
	resp := make([]fieldResponse, len(fields))
	for i, f := range fields {
		resp[i] = fieldResponse{
			Key:      f.Key,
			Label:    f.Label,
			Required: f.Required,
			Kind:     f.Kind.KindName(),
			Options:  f.Options,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleDownloadTemplate serves the starter CSV for the target schema.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="import_template.csv"`)
	w.Write(importer.TemplateCSV(schema.Fields()))
}

// handleGetSession returns the caller's current session snapshot.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	respondJSON(w, http.StatusOK, toSnapshotResponse(sess.Snapshot()))
}

// handleUploadSource accepts the multipart source file and moves the
// caller's session to the mapping stage.
func (s *Server) handleUploadSource(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())

	sess, err := s.sessions.Acquire(r.Context(), principal)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	// Bound the multipart read by the configured ceiling plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize+64*1024)
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		s.respondError(w, r, importer.ErrSourceTooLarge, http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, importer.ErrUnsupportedFormat, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	opts := importer.SourceOptions{
		MaxBytes: s.cfg.Import.MaxFileSize,
		Encoding: r.FormValue("encoding"),
	}
	if err := sess.LoadSource(header.Filename, header.Header.Get("Content-Type"), data, opts); err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	logging.FromContext(r.Context()).Info("source loaded",
		"session_id", sess.ID,
		"file", header.Filename,
		"bytes", len(data),
	)
	respondJSON(w, http.StatusOK, toSnapshotResponse(sess.Snapshot()))
}

// handleSetMapping overrides one column mapping entry.
func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Header    string `json:"header"`
		TargetKey string `json:"targetKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	sess, err := s.sessions.Get(middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	if err := sess.SetColumnMapping(body.Header, body.TargetKey); err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	respondJSON(w, http.StatusOK, toSnapshotResponse(sess.Snapshot()))
}

// handleConfirm validates all rows under the current mapping and moves the
// session to the preview stage.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	if err := sess.ConfirmMapping(); err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	snap := sess.Snapshot()
	logging.FromContext(r.Context()).Info("rows validated",
		"session_id", sess.ID,
		"total", snap.TotalRows,
		"valid", snap.ValidRows,
		"invalid", snap.InvalidRows,
	)
	respondJSON(w, http.StatusOK, toSnapshotResponse(snap))
}

// handleSubmit starts batch submission of the valid records. The request
// returns once submission completes; progress can be polled concurrently
// via GET /api/session.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	start := time.Now()
	submitter := s.submitter
	if err := sess.Submit(r.Context(), &submitter, s.sink); err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	snap := sess.Snapshot()
	logging.FromContext(r.Context()).Info("submission complete",
		"session_id", sess.ID,
		"processed", snap.Progress.Processed,
		"successful", snap.Progress.Successful,
		"failed", snap.Progress.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	respondJSON(w, http.StatusOK, toSnapshotResponse(snap))
}

// handleCancel stops an in-flight submission.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	sess.Cancel()
	respondJSON(w, http.StatusOK, toSnapshotResponse(sess.Snapshot()))
}

// handleBack navigates one pipeline step backwards.
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	if err := sess.Back(); err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	respondJSON(w, http.StatusOK, toSnapshotResponse(sess.Snapshot()))
}

// handleReset wipes the caller's session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if err := s.sessions.Drop(principal); err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"state": importer.StateCollectingInput.String()})
}

// handleErrorReport serves the post-import failure report as CSV.
func (s *Server) handleErrorReport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	snap := sess.Snapshot()
	if snap.State != importer.StateComplete {
		s.respondError(w, r, &importer.TransitionError{From: snap.State, To: importer.StateComplete}, http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="import_errors.csv"`)
	w.Write(importer.ErrorReportCSV(snap))
}
