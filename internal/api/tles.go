package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/signalsfoundry/sattrack/internal/logging"
	"github.com/signalsfoundry/sattrack/model"
)

type importResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// listTLEs returns the visible entries, or every entry with ?all=true.
func (s *Server) listTLEs(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	if all {
		writeJSON(w, http.StatusOK, s.tles.Entries())
		return
	}
	writeJSON(w, http.StatusOK, s.tles.GetAll())
}

func (s *Server) addTLE(w http.ResponseWriter, r *http.Request) {
	var entry model.TLEEntry
	if err := decodeJSON(r, w, &entry); err != nil {
		writeError(w, r, err)
		return
	}
	if model.NormalizeKey(entry.Name) == "" {
		writeError(w, r, fmt.Errorf("%w: name is required", ErrBadRequest))
		return
	}
	if !s.tles.Add(entry) {
		writeJSON(w, http.StatusConflict, errorBody{Error: fmt.Sprintf("TLE %q already exists", entry.Name)})
		return
	}
	writeJSON(w, http.StatusCreated, model.NewTLERecord(entry))
}

// importTLEs accepts a plain-text two- or three-line TLE feed.
func (s *Server) importTLEs(w http.ResponseWriter, r *http.Request) {
	entries, err := model.ParseTLEFeed(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	added := s.tles.Import(entries)
	if log := logging.LoggerFromContext(r.Context()); log != nil {
		log.Info(r.Context(), "TLE feed imported", logging.Int("added", added), logging.Int("skipped", len(entries)-added))
	}
	writeJSON(w, http.StatusOK, importResult{Added: added, Skipped: len(entries) - added})
}

func (s *Server) getTLE(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rec, ok := s.tles.Get(name)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: TLE %q", ErrNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) toggleTLE(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rec, ok := s.tles.Toggle(name)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: TLE %q", ErrNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) removeTLE(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.tles.Remove(name) {
		writeError(w, r, fmt.Errorf("%w: TLE %q", ErrNotFound, name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearTLEs(w http.ResponseWriter, r *http.Request) {
	s.tles.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}
