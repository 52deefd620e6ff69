package http

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"fincontrol/internal/core"
	"fincontrol/internal/log"
)

// recentLimit is the size of the dashboard's recent transactions list.
const recentLimit = 10

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		NotFoundError("unknown collection").Write(w, r)
		return
	}
	list, err := s.deps.Ledger.List(r.Context(), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	switch r.URL.Query().Get("sort") {
	case "", "insertion":
	case "date":
		slices.SortStableFunc(list, func(a, b core.Transaction) int {
			return b.Date.Compare(a.Date.Time)
		})
	default:
		BadRequestError("sort must be date or insertion").Write(w, r)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		NotFoundError("unknown collection").Write(w, r)
		return
	}
	t, err := s.deps.Ledger.Get(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		NotFoundError("unknown collection").Write(w, r)
		return
	}

	var req TransactionRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	fields, problems := req.Fields()
	if problems != nil {
		ValidationError(problems).Write(w, r)
		return
	}

	t, err := s.deps.Ledger.Create(r.Context(), kind, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.FieldKind, string(kind),
		log.FieldRecordID, t.ID)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/"+kind.Collection()+"/"+t.ID).
		Body(t).
		Write(w, r)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		NotFoundError("unknown collection").Write(w, r)
		return
	}
	id := chi.URLParam(r, "id")

	var req PatchRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	patch, problems := req.Patch()
	if problems != nil {
		ValidationError(problems).Write(w, r)
		return
	}

	if err := s.deps.Ledger.Update(r.Context(), kind, id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Ledger.Get(r.Context(), kind, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

// handleDelete answers 204 whether or not the record existed.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		NotFoundError("unknown collection").Write(w, r)
		return
	}
	if err := s.deps.Ledger.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListAll returns both collections newest first. ?recent=true is a
// shorthand for the dashboard's limit.
func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	if r.URL.Query().Get("recent") == "true" {
		limit = recentLimit
	}
	all := s.deps.Ledger.ListAll(r.Context())
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	writeJSON(w, r, http.StatusOK, all)
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.ClearAll(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger cleared")
	w.WriteHeader(http.StatusNoContent)
}
