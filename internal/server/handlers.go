package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"quakeview/internal/filter"
	"quakeview/internal/scheduler"
	"quakeview/internal/session"
	"quakeview/internal/view"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type ScrollRequest struct {
	Offset *int `json:"offset,omitempty"`
	Delta  int  `json:"delta,omitempty"`
}

type ResizeRequest struct {
	ContainerHeight int `json:"containerHeight"`
}

// PageRequest either jumps to Page or applies Action ("next", "prev").
// Paginated and PageSize change the layout first when set.
type PageRequest struct {
	Page      int    `json:"page,omitempty"`
	Action    string `json:"action,omitempty"`
	Paginated *bool  `json:"paginated,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
}

type SelectRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

type SelectResponse struct {
	Reposition view.Reposition `json:"reposition"`
	Frame      session.Frame   `json:"frame"`
}

type SortRequest struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

type FilterRequest struct {
	Query    string   `json:"query,omitempty"`
	Regex    bool     `json:"regex,omitempty"`
	Field    string   `json:"field,omitempty"`
	MinMag   *float64 `json:"minMag,omitempty"`
	MaxMag   *float64 `json:"maxMag,omitempty"`
	MaxDepth *float64 `json:"maxDepth,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
	Expr     string   `json:"expr,omitempty"`
}

func (f FilterRequest) criteria() filter.Criteria {
	c := filter.Criteria{
		Query:    f.Query,
		UseRegex: f.Regex,
		Field:    f.Field,
		MinMag:   f.MinMag,
		MaxMag:   f.MaxMag,
		MaxDepth: f.MaxDepth,
		Expr:     f.Expr,
	}
	if len(f.Statuses) > 0 {
		c.Statuses = map[string]bool{}
		for _, st := range f.Statuses {
			c.Statuses[st] = true
		}
	}
	return c
}

type StatusResponse struct {
	Session   session.Status    `json:"session"`
	Refresh   *scheduler.Status `json:"refresh,omitempty"`
	Collected int               `json:"collected"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid JSON body")
		return false
	}
	return true
}

// handleFrame returns the current window. ?view=primary|secondary marks
// that view as the one that rendered it.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src := view.ParseSource(r.URL.Query().Get("view")); src != view.SourceNone {
		s.sess.MarkRendered(src)
	}
	writeJSON(w, http.StatusOK, s.sess.Frame())
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	var req ScrollRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Offset != nil {
		s.sess.Scroll(*req.Offset)
	} else {
		s.sess.ScrollBy(req.Delta)
	}
	writeJSON(w, http.StatusOK, s.sess.Frame())
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ContainerHeight < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "containerHeight must not be negative")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.Resize(req.ContainerHeight)
	writeJSON(w, http.StatusOK, s.sess.Frame())
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Paginated != nil {
		s.sess.SetPaginated(*req.Paginated)
	}
	if req.PageSize > 0 {
		s.sess.SetPageSize(req.PageSize)
	}
	switch req.Action {
	case "":
		if req.Page > 0 {
			s.sess.GoToPage(req.Page)
		}
	case "next":
		s.sess.NextPage()
	case "prev", "previous":
		s.sess.PreviousPage()
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "Unknown page action "+req.Action)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Frame())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "id is required")
		return
	}
	src := view.ParseSource(req.Source)
	if src == view.SourceNone {
		src = view.SourceSecondary
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rep := s.sess.Select(req.ID, src)
	writeJSON(w, http.StatusOK, SelectResponse{Reposition: rep, Frame: s.sess.Frame()})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.ClearSelection()
	writeJSON(w, http.StatusOK, s.sess.Frame())
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if !decode(w, r, &req) {
		return
	}
	if !slices.Contains(filter.SortFields, req.Field) {
		writeError(w, http.StatusBadRequest, "bad_request", "Cannot sort by "+req.Field)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.SetSort(req.Field, req.Desc)
	writeJSON(w, http.StatusOK, s.sess.Frame())
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sess.SetFilter(req.criteria()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Frame())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	st, err := s.Refresh()
	if errors.Is(err, ErrNoSource) {
		writeError(w, http.StatusConflict, "no_source", err.Error())
		return
	}
	s.logger.Info("refresh requested", "gen", st.Gen(), "run_id", st.RunID())
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusAccepted, s.sess.Status())
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	rec, ok := s.sess.Collection().Get(id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "No record "+id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{Session: s.sess.Status(), Collected: s.sess.Collection().Total()}
	s.mu.Unlock()
	if s.sched != nil {
		st := s.sched.Status()
		resp.Refresh = &st
	}
	writeJSON(w, http.StatusOK, resp)
}
