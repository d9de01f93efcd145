package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hupe1980/roundtable"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/stream"
)

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	Topic          string `json:"topic"`
	Turns          int    `json:"turns"`
	ConversationID string `json:"conversationId"`
	IsContinuation bool   `json:"isContinuation"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const maxBodyBytes = 1 << 20

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Topic is required"})
		return
	}
	if req.Turns < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Turns must be at least 1"})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	release := s.track(cancel)
	defer release()

	em := stream.NewSSEEmitter(w)
	_ = em.Comment("connected")

	_, err := s.runner.Run(ctx, roundtable.Request{
		Topic:          req.Topic,
		Turns:          req.Turns,
		ConversationID: req.ConversationID,
		Continuation:   req.IsContinuation,
	}, em)

	switch {
	case err == nil:
		_ = em.Done()
	case errors.Is(err, context.Canceled):
		s.opts.Logger.Info("conversation stopped", "component", "server", "topic", req.Topic)
	default:
		s.opts.Logger.Error("conversation failed", "component", "server", "topic", req.Topic, "error", err)
		_ = em.Emit(core.NewErrorEvent(err.Error()))
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.runner.Conversations(r.Context())
	if err != nil {
		s.opts.Logger.Error("failed to list conversations", "component", "server", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if list == nil {
		list = []core.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runner.Conversation(r.Context(), r.PathValue("id"))
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.opts.Logger.Warn("failed to load conversation", "component", "server", "error", err)
		}
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Conversation not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	n := s.StopAll()
	s.opts.Logger.Info("stopped conversations", "component", "server", "count", n)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
