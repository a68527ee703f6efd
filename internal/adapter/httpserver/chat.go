package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

type chatRequest struct {
	Message             string               `json:"message" validate:"required"`
	ConversationHistory []domain.ChatMessage `json:"conversation_history" validate:"dive"`
}

type chatEvent struct {
	Content      string `json:"content"`
	Done         bool   `json:"done"`
	FullResponse string `json:"full_response,omitempty"`
	Error        bool   `json:"error,omitempty"`
}

// chatStreamApology is sent to the client when the upstream stream breaks
// after the response has already started.
const chatStreamApology = "抱歉，我暫時無法回應你嘅問題，請稍後再試。"

// ChatHandler streams a tutor reply as server-sent events: one data frame per
// content delta, then a final frame carrying the full assembled response.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument), err.Error())
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), err.Error())
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, r, fmt.Errorf("op=httpserver.Chat: streaming unsupported: %w", domain.ErrInternal), nil)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		var buffer string
		writeEvent := func(ev chatEvent) {
			b, _ := json.Marshal(ev)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}

		err := s.Chat.Stream(r.Context(), req.Message, req.ConversationHistory, func(delta string) error {
			buffer += delta
			writeEvent(chatEvent{Content: delta})
			return nil
		})
		if err != nil {
			LoggerFrom(r).Error("tutor chat stream failed", "error", err)
			writeEvent(chatEvent{Content: chatStreamApology, Done: true, Error: true})
			return
		}
		writeEvent(chatEvent{Done: true, FullResponse: buffer})
	}
}
