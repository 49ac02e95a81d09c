package services

import (
	"net/http"
	"strconv"

	"visadesk/internal/domain"
	"visadesk/internal/lifecycle"
	"visadesk/internal/moderation"
	apperrors "visadesk/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ModeratePayload carries an approve or reject decision
type ModeratePayload struct {
	Decision moderation.Decision `json:"decision"`
}

// FeaturePayload toggles the featured flag of a testimonial
type FeaturePayload struct {
	Featured bool `json:"featured"`
}

// PublishPayload toggles the published flag of a post
type PublishPayload struct {
	Published bool `json:"published"`
}

func (s *Server) submitTestimonial(w http.ResponseWriter, r *http.Request) error {
	var in domain.TestimonialInput
	if err := s.decode(r, &in); err != nil {
		return err
	}
	t, err := s.engine.SubmitTestimonial(r.Context(), in)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusCreated, t)
	return nil
}

func (s *Server) publicTestimonials(w http.ResponseWriter, r *http.Request) error {
	featured, err := queryBool(r, "featured")
	if err != nil {
		return err
	}
	items, err := s.engine.PublicTestimonials(r.Context(), featured != nil && *featured)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, map[string]any{"items": items})
	return nil
}

func (s *Server) publicPosts(w http.ResponseWriter, r *http.Request) error {
	page, err := pageOf(r, defaultPageSize, maxPageSize)
	if err != nil {
		return err
	}
	category := domain.BlogCategory(r.URL.Query().Get("category"))
	items, err := s.engine.PublicPosts(r.Context(), category, page)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, map[string]any{"items": items})
	return nil
}

// publishedPost serves a post by slug and counts the view
func (s *Server) publishedPost(w http.ResponseWriter, r *http.Request) error {
	post, err := s.engine.GetPublishedPost(r.Context(), s.mux.Vars(r)["slug"])
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, post)
	return nil
}

func (s *Server) publicComments(w http.ResponseWriter, r *http.Request) error {
	id, err := s.pathID(r)
	if err != nil {
		return err
	}
	items, err := s.engine.PublicComments(r.Context(), id)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, map[string]any{"items": items})
	return nil
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) error {
	id, err := s.pathID(r)
	if err != nil {
		return err
	}
	var in domain.CommentInput
	if err := s.decode(r, &in); err != nil {
		return err
	}
	c, err := s.engine.AddComment(r.Context(), id, in)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusCreated, c)
	return nil
}

func (s *Server) moderate(kind domain.Kind) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := s.pathID(r)
		if err != nil {
			return err
		}
		var p ModeratePayload
		if err := s.decode(r, &p); err != nil {
			return err
		}
		rec, err := s.engine.Moderate(r.Context(), kind, id, p.Decision)
		if err != nil {
			return err
		}
		s.respond(w, r, http.StatusOK, rec)
		return nil
	}
}

func (s *Server) feature(w http.ResponseWriter, r *http.Request) error {
	id, err := s.pathID(r)
	if err != nil {
		return err
	}
	var p FeaturePayload
	if err := s.decode(r, &p); err != nil {
		return err
	}
	t, err := s.engine.SetTestimonialFeatured(r.Context(), id, p.Featured)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, t)
	return nil
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) error {
	var in domain.PostInput
	if err := s.decode(r, &in); err != nil {
		return err
	}
	post, err := s.engine.CreatePost(r.Context(), in)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusCreated, post)
	return nil
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) error {
	id, err := s.pathID(r)
	if err != nil {
		return err
	}
	var patch domain.PostPatch
	if err := s.decode(r, &patch); err != nil {
		return err
	}
	post, err := s.engine.UpdatePost(r.Context(), id, patch)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, post)
	return nil
}

func (s *Server) publishPost(w http.ResponseWriter, r *http.Request) error {
	id, err := s.pathID(r)
	if err != nil {
		return err
	}
	var p PublishPayload
	if err := s.decode(r, &p); err != nil {
		return err
	}
	post, err := s.engine.SetPostPublished(r.Context(), id, p.Published)
	if err != nil {
		return err
	}
	s.respond(w, r, http.StatusOK, post)
	return nil
}

// pageOf reads the page and limit query parameters. Pages start at 1.
func pageOf(r *http.Request, def, maxLimit int) (lifecycle.Page, error) {
	q := r.URL.Query()
	page, limit := 1, def
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return lifecycle.Page{}, apperrors.New(apperrors.ErrCodeBadRequest, "page must be a positive integer")
		}
		page = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return lifecycle.Page{}, apperrors.New(apperrors.ErrCodeBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxLimit)
	}
	return lifecycle.Page{Offset: (page - 1) * limit, Limit: limit}, nil
}

// queryBool parses an optional boolean query parameter
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, name+" must be true or false")
	}
	return &v, nil
}
