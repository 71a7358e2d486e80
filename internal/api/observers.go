package api

import (
	"fmt"
	"net/http"

	"github.com/signalsfoundry/sattrack/model"
)

func (s *Server) listObservers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.observers.List())
}

func (s *Server) addObserver(w http.ResponseWriter, r *http.Request) {
	var in model.ObserverInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, r, err)
		return
	}
	obs, err := s.observers.Add(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, obs)
}

func (s *Server) getObserver(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	obs, ok := s.observers.Get(name)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: observer %q", ErrNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

// removeObserver answers 204 whether or not the observer existed.
func (s *Server) removeObserver(w http.ResponseWriter, r *http.Request) {
	s.observers.Remove(r.PathValue("name"))
	w.WriteHeader(http.StatusNoContent)
}
