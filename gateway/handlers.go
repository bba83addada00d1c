package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/piyushkb/WhastapWeb/engine"
	"github.com/piyushkb/WhastapWeb/errors"
	"github.com/piyushkb/WhastapWeb/health"
	"github.com/piyushkb/WhastapWeb/message"
	"github.com/piyushkb/WhastapWeb/qr"
	"github.com/piyushkb/WhastapWeb/validate"
)

// dataResponse is the uniform success envelope.
type dataResponse struct {
	Data any `json:"data"`
}

// handleListSessions answers GET /sessions with every session the engine
// currently holds.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	entries, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dataResponse{Data: entries})
}

// handleGetSession answers GET /sessions/get-session?session=<name>. The
// route is unauthenticated so pairing pages can poll it.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("session")
	if name == "" {
		s.writeError(w, errors.Validation("gateway", "get-session", "Session ID is required"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.sessions.Status(r.Context(), name))
}

// startRequest is the POST /sessions/start payload.
type startRequest struct {
	Session string `json:"session"`
}

// handleStartPost starts a session and answers with the raw pairing
// challenge, or a connected notice when the engine restored the session
// without one.
func (s *Server) handleStartPost(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := validate.StartSession.Validate(body); err != nil {
		s.writeError(w, err)
		return
	}

	var req startRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, errors.Validation("gateway", "start", "Request body must be valid JSON"))
		return
	}

	result, err := s.sessions.Start(r.Context(), req.Session)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if result.Connected {
		s.writeJSON(w, http.StatusOK, dataResponse{Data: map[string]string{"message": "Connected"}})
		return
	}
	s.writeJSON(w, http.StatusOK, dataResponse{Data: map[string]string{"qr": result.QR}})
}

// startPageResponse is the GET /sessions/start body, shaped for a pairing
// page that renders the challenge as an image.
type startPageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	QRCode  string `json:"qrCode,omitempty"`
}

// handleStartGet starts a session named by the query string and answers
// with the challenge rendered as a PNG data URL.
func (s *Server) handleStartGet(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("session")
	if name == "" {
		s.writeError(w, errors.WrapInvalid(errors.ErrSessionNameRequired, "Server", "handleStartGet", "query check"))
		return
	}

	result, err := s.sessions.Start(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if result.Connected {
		s.writeJSON(w, http.StatusOK, startPageResponse{
			Status:  "connected",
			Message: "Session connected successfully.",
		})
		return
	}

	dataURL, err := qr.DataURL(result.QR)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, startPageResponse{
		Status:  "pending",
		Message: "Session started. Scan the QR code to continue.",
		QRCode:  dataURL,
	})
}

// handleLogout tears a session down. The name travels in the query string
// or, for POST callers, the JSON body.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("session")
	if name == "" && r.Body != nil {
		body, err := s.readBody(w, r)
		if err == nil && len(body) > 0 {
			var req startRequest
			if err := json.Unmarshal(body, &req); err == nil {
				name = req.Session
			}
		}
	}

	if err := s.sessions.Logout(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dataResponse{Data: "Session successfully logged out"})
}

// sendRequest is the shared shape of the four send payloads; each route
// reads its own attachment field.
type sendRequest struct {
	Session      string `json:"session"`
	To           string `json:"to"`
	Message      string `json:"message"`
	Image        string `json:"image"`
	Document     string `json:"document"`
	DocumentName string `json:"document_name"`
	Video        string `json:"video"`
}

// sendSchemas maps a message kind to its route schema.
var sendSchemas = map[message.Kind]*validate.Schema{
	message.KindText:     validate.SendText,
	message.KindImage:    validate.SendImage,
	message.KindDocument: validate.SendDocument,
	message.KindVideo:    validate.SendVideo,
}

// handleSend builds the handler for one send route.
func (s *Server) handleSend(kind message.Kind) http.HandlerFunc {
	schema := sendSchemas[kind]
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := s.readBody(w, r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := schema.Validate(body); err != nil {
			s.writeError(w, err)
			return
		}

		var req sendRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, errors.Validation("gateway", "send", "Request body must be valid JSON"))
			return
		}

		msg := message.Request{
			Kind:    kind,
			Session: req.Session,
			To:      req.To,
			Text:    req.Message,
		}
		switch kind {
		case message.KindImage:
			msg.MediaURL = req.Image
		case message.KindDocument:
			msg.MediaURL = req.Document
			msg.Filename = req.DocumentName
		case message.KindVideo:
			msg.MediaURL = req.Video
		}

		result, err := s.messages.Send(r.Context(), msg)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, dataResponse{Data: result})
	}
}

// handleHealth reports aggregate health. The engine transport is the only
// hard dependency, so a disconnected engine makes the whole surface
// unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var statuses []health.Status

	if reporter, ok := s.eng.(engine.HealthReporter); ok {
		connected := reporter.Connected()
		s.metrics.RecordEngineStatus(connected)
		if connected {
			statuses = append(statuses, health.Healthy("engine"))
		} else {
			statuses = append(statuses, health.Unhealthy("engine", "engine transport disconnected"))
		}
	} else {
		statuses = append(statuses, health.Healthy("engine"))
	}

	overall := health.Aggregate("whastapweb", statuses)
	code := http.StatusOK
	if overall.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, overall)
}
