package web

import (
	"context"
	"io"
	"net/http"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/measure"
	"github.com/dofliu/InduSpect/internal/session"
)

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionBody(r.Context()))
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	photo, err := readPhoto(w, r, s.maxUpload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, r, s.wf.SubmitForm(r.Context(), photo.Data))
}

func (s *Server) handleCapturePhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := readPhoto(w, r, s.maxUpload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, r, s.wf.CapturePhoto(r.Context(), r.PathValue("id"), photo))
}

// handleAnalyze runs the batch and streams its progress as Server-Sent
// Events. Errors raised before the first dispatch are plain JSON.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	emitter := NewSSEEmitter(w)
	if emitter == nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// The batch outlives a client that goes away mid-stream.
	_, err := s.wf.StartBatch(context.WithoutCancel(r.Context()), emitter)
	s.persist(r.Context())
	if err != nil {
		if !emitter.Started() {
			writeWorkflowError(w, err)
			return
		}
		emitter.Emit(analysis.ProgressEvent{Type: analysis.EventError, Message: err.Error()})
		return
	}
	emitter.send(map[string]any{"type": "session", "session": s.sessionBody(r.Context())})
}

type hintRequest struct {
	Hint string `json:"hint"`
}

func readHint(r *http.Request) (string, error) {
	if h := r.URL.Query().Get("hint"); h != "" {
		return h, nil
	}
	var req hintRequest
	if err := readJSON(r, &req); err != nil && err != io.EOF {
		return "", err
	}
	return req.Hint, nil
}

func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	h, err := readHint(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_, err = s.wf.Reanalyze(context.WithoutCancel(r.Context()), r.PathValue("id"), h, nil)
	s.respond(w, r, err)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	photo, err := readPhoto(w, r, s.maxUpload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, err = s.wf.RetryWithPhoto(context.WithoutCancel(r.Context()), r.PathValue("id"), photo, nil)
	s.respond(w, r, err)
}

func (s *Server) handleEditResult(w http.ResponseWriter, r *http.Request) {
	var edit session.ResultEdit
	if err := readJSON(r, &edit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.respond(w, r, s.wf.EditResult(r.PathValue("id"), edit))
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	var req measure.Request
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.wf.ApplyMeasurement(r.PathValue("id"), req)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	s.persist(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"measurement": res,
		"session":     s.sessionBody(r.Context()),
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.wf.Confirm(r.PathValue("id")))
}

func (s *Server) handleConfirmAll(w http.ResponseWriter, r *http.Request) {
	_, err := s.wf.ConfirmAll()
	s.respond(w, r, err)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.wf.GenerateReport(r.Context()))
}

func (s *Server) handleStartNew(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.wf.StartNewInspection(r.Context()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.wf.ResetAll(r.Context()); err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionBody(r.Context()))
}
