package http

import (
	"errors"
	"net/http"

	"fishbox/internal/core"
	"fishbox/internal/services"
)

// session returns the caller's catch store, signing in on first use.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*services.CatchStore, bool) {
	uid, ok := userID(w, r)
	if !ok {
		return nil, false
	}
	if store, ok := s.sessions.Store(uid); ok {
		return store, true
	}
	store, err := s.sessions.SignIn(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return store, true
}

type sessionResponse struct {
	UserID  string `json:"userId"`
	Catches int    `json:"catches"`
}

// handleSignIn (re)loads the caller's catches.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	store, err := s.sessions.SignIn(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{UserID: uid, Catches: store.Len()})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	s.sessions.SignOut(uid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCatches(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCatchViews(store.Catches()))
}

func (s *Server) handleCreateCatch(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	var in core.CatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeBadRequest(w)
		return
	}
	in.Species = sanitizeInput(in.Species)
	in.Location = sanitizeInput(in.Location)
	in.Bait = sanitizeInput(in.Bait)
	in.Notes = sanitizeInput(in.Notes)

	saved, err := store.Add(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCatchView(saved))
}

// handleGetCatch serves the caller's own catches from the session and any
// other public catch from the repository.
func (s *Server) handleGetCatch(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	c, err := store.Get(id)
	if errors.Is(err, core.ErrNotFound) {
		c, err = s.social.Catch(r.Context(), store.OwnerID(), id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCatchView(c))
}

func (s *Server) handleUpdateCatch(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	var patch core.CatchPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeBadRequest(w)
		return
	}
	for _, field := range []*string{patch.Species, patch.Location, patch.Bait, patch.Notes} {
		if field != nil {
			*field = sanitizeInput(*field)
		}
	}

	updated, err := store.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCatchView(updated))
}

func (s *Server) handleDeleteCatch(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := store.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
