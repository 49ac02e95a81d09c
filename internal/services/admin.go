package services

import (
	"net/http"
	"strconv"

	"visadesk/internal/domain"
	"visadesk/internal/store"
	apperrors "visadesk/pkg/errors"
)

const (
	adminPageSize    = 50
	adminMaxPageSize = 200
)

// filterParam converts a query value into a typed column value
type filterParam func(raw string) (any, error)

func textParam(raw string) (any, error) { return raw, nil }

func boolParam(raw string) (any, error) {
	return strconv.ParseBool(raw)
}

func idParam(raw string) (any, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return uint(n), nil
}

// adminFilters lists the query parameters each admin listing accepts;
// keys are column names
var adminFilters = map[domain.Kind]map[string]filterParam{
	domain.KindApplication:  {"status": textParam},
	domain.KindConsultation: {"status": textParam, "details_channel": textParam},
	domain.KindInquiry:      {"status": textParam},
	domain.KindTestimonial:  {"moderation": textParam, "is_featured": boolParam},
	domain.KindBlogPost:     {"published": boolParam, "category": textParam},
	domain.KindBlogComment:  {"moderation": textParam, "post_id": idParam},
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) error {
	stats, err := s.engine.Dashboard(r.Context())
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, stats)
	return nil
}

func (s *Server) list(kind domain.Kind) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		f, err := adminFilter(r, kind)
		if err != nil {
			return err
		}
		items, err := s.engine.List(r.Context(), kind, f)
		if err != nil {
			return err
		}
		s.respond(w, r, http.StatusOK, map[string]any{"items": items})
		return nil
	}
}

func (s *Server) get(kind domain.Kind) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := s.pathID(r)
		if err != nil {
			return err
		}
		rec, err := s.engine.Get(r.Context(), kind, id)
		if err != nil {
			return err
		}
		s.respond(w, r, http.StatusOK, rec)
		return nil
	}
}

func (s *Server) remove(kind domain.Kind) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := s.pathID(r)
		if err != nil {
			return err
		}
		if err := s.engine.Delete(r.Context(), kind, id); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
}

// adminFilter builds a newest-first listing filter from the query string
func adminFilter(r *http.Request, kind domain.Kind) (store.Filter, error) {
	page, err := pageOf(r, adminPageSize, adminMaxPageSize)
	if err != nil {
		return store.Filter{}, err
	}
	f := store.Filter{Desc: true, Offset: page.Offset, Limit: page.Limit}

	q := r.URL.Query()
	for column, parse := range adminFilters[kind] {
		raw := q.Get(column)
		if raw == "" {
			continue
		}
		v, err := parse(raw)
		if err != nil {
			return store.Filter{}, apperrors.New(apperrors.ErrCodeBadRequest, "invalid value for "+column)
		}
		if f.Where == nil {
			f.Where = map[string]any{}
		}
		f.Where[column] = v
	}
	return f, nil
}
