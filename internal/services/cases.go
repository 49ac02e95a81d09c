package services

import (
	"net/http"
	"strings"

	"visadesk/internal/domain"
	"visadesk/internal/lifecycle"
)

// idempotencyHeader lets a client retry a reply without sending it twice
const idempotencyHeader = "Idempotency-Key"

// TransitionPayload is the body of a status change request
type TransitionPayload struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
	Reply  string  `json:"reply,omitempty"`
}

// NotesPayload replaces the admin notes of a case
type NotesPayload struct {
	Notes string `json:"notes"`
}

// ReplyPayload is the admin reply to an inquiry
type ReplyPayload struct {
	Reply string `json:"reply"`
}

func (s *Server) submitApplication(w http.ResponseWriter, r *http.Request) error {
	var in domain.ApplicationInput
	if err := s.decode(r, &in); err != nil {
		return err
	}
	app, err := s.engine.SubmitApplication(r.Context(), in)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusCreated, app)
	return nil
}

func (s *Server) submitConsultation(w http.ResponseWriter, r *http.Request) error {
	var in domain.ConsultationInput
	if err := s.decode(r, &in); err != nil {
		return err
	}
	c, err := s.engine.SubmitConsultation(r.Context(), in)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusCreated, c)
	return nil
}

func (s *Server) submitInquiry(w http.ResponseWriter, r *http.Request) error {
	var in domain.InquiryInput
	if err := s.decode(r, &in); err != nil {
		return err
	}
	inq, err := s.engine.SubmitInquiry(r.Context(), in)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusCreated, inq)
	return nil
}

func (s *Server) transition(kind domain.Kind) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := s.pathID(r)
		if err != nil {
			return err
		}
		var p TransitionPayload
		if err := s.decode(r, &p); err != nil {
			return err
		}
		rec, err := s.engine.Transition(r.Context(), kind, id, strings.TrimSpace(p.Status), lifecycle.TransitionExtra{
			Notes:          p.Notes,
			Reply:          p.Reply,
			IdempotencyKey: r.Header.Get(idempotencyHeader),
		})
		if err != nil {
			return err
		}
		s.respond(w, r, http.StatusOK, rec)
		return nil
	}
}

func (s *Server) applicationNotes(w http.ResponseWriter, r *http.Request) error {
	id, err := s.pathID(r)
	if err != nil {
		return err
	}
	var p NotesPayload
	if err := s.decode(r, &p); err != nil {
		return err
	}
	app, err := s.engine.UpdateApplicationNotes(r.Context(), id, p.Notes)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, app)
	return nil
}

func (s *Server) consultationNotes(w http.ResponseWriter, r *http.Request) error {
	id, err := s.pathID(r)
	if err != nil {
		return err
	}
	var p NotesPayload
	if err := s.decode(r, &p); err != nil {
		return err
	}
	c, err := s.engine.UpdateConsultationNotes(r.Context(), id, p.Notes)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, c)
	return nil
}

func (s *Server) attachDocument(w http.ResponseWriter, r *http.Request) error {
	id, err := s.pathID(r)
	if err != nil {
		return err
	}
	var doc domain.Document
	if err := s.decode(r, &doc); err != nil {
		return err
	}
	app, err := s.engine.AttachDocument(r.Context(), id, doc)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusCreated, app)
	return nil
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request) error {
	id, err := s.pathID(r)
	if err != nil {
		return err
	}
	var p ReplyPayload
	if err := s.decode(r, &p); err != nil {
		return err
	}
	inq, err := s.engine.ReplyInquiry(r.Context(), id, p.Reply, r.Header.Get(idempotencyHeader))
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, inq)
	return nil
}
