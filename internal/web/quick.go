package web

import (
	"context"
	"net/http"
)

func (s *Server) handleStartQuick(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.wf.StartQuick())
}

func (s *Server) handleQuickPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := readPhoto(w, r, s.maxUpload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, err = s.wf.QuickAnalyze(context.WithoutCancel(r.Context()), photo, hint(r), nil)
	s.respond(w, r, err)
}

func (s *Server) handleSaveQuick(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.wf.SaveQuick())
}

func (s *Server) handleRetryQuick(w http.ResponseWriter, r *http.Request) {
	h, err := readHint(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_, err = s.wf.RetryQuick(context.WithoutCancel(r.Context()), h, nil)
	s.respond(w, r, err)
}

func (s *Server) handleBackToMain(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.wf.BackToMain(r.Context()))
}
