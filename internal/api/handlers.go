package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"taxsun/internal/errors"
)

// maxJSONBody bounds small JSON request bodies.
const maxJSONBody = 1 << 20

// FetchIDRequest names the taxon to look up
type FetchIDRequest struct {
	TaxName string `json:"taxName"`
}

// FetchIDResponse carries the first matching identifier
type FetchIDResponse struct {
	TaxID string `json:"taxID"`
}

// handleFetchID handles POST /fetchID
func (s *Server) handleFetchID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req FetchIDRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		WriteError(w, errors.New(errors.InvalidRequest, "request body must be JSON like {\"taxName\": \"...\"}", err))
		return
	}
	if strings.TrimSpace(req.TaxName) == "" {
		BadRequest(w, "taxName is required")
		return
	}

	ids, err := s.directory.LookupIDsByName(r.Context(), req.TaxName)
	if err != nil {
		WriteError(w, err)
		return
	}
	if len(ids) == 0 {
		WriteError(w, errors.Newf(errors.NameNotFound, "no taxon named %q", req.TaxName).
			WithDetails(map[string]interface{}{"taxName": req.TaxName}))
		return
	}
	if len(ids) > 1 {
		s.logger.Debug("Ambiguous taxon name", "taxName", req.TaxName, "ids", ids)
	}

	WriteJSON(w, FetchIDResponse{TaxID: ids[0]}, http.StatusOK)
}
