package http

import (
	"net/http"

	"fincontrol/internal/settings"
)

// ThemeBody is the request and response shape of the theme endpoints.
type ThemeBody struct {
	Theme settings.Theme `json:"theme" validate:"required,oneof=light dark"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, ThemeBody{Theme: s.deps.Settings.Theme(r.Context())})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var body ThemeBody
	if err := decodeJSON(w, r, maxBodyBytes, &body); err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	if err := validate.Struct(body); err != nil {
		ValidationError(map[string]string{"theme": "oneof"}).Write(w, r)
		return
	}
	if err := s.deps.Settings.SetTheme(r.Context(), body.Theme); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, body)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	next, err := s.deps.Settings.ToggleTheme(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ThemeBody{Theme: next})
}
