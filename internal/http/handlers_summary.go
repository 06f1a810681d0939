package http

import (
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/validation"
)

type summaryResponse struct {
	Summary core.Summary `json:"summary"`
}

type categoriesResponse struct {
	Categories []core.Category `json:"categories"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var q validation.SummaryQuery
	if err := s.validator.DecodeQuery(r.URL.Query(), &q); err != nil {
		s.writeValidationError(w, r, err, "Failed to retrieve summary")
		return
	}

	summary, err := s.ledger.Summary(r.Context(), q.Filter())
	if err != nil {
		logFailure(r, "Failed to retrieve summary", err, log.OpSummary)
		InternalServerError("Failed to retrieve summary").Write(w, r)
		return
	}

	NewJSONResponse().Body(summaryResponse{Summary: summary}).Write(w, r)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.ledger.Categories(r.Context())
	if err != nil {
		logFailure(r, "Failed to retrieve categories", err, log.OpList)
		InternalServerError("Failed to retrieve categories").Write(w, r)
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}

	NewJSONResponse().Body(categoriesResponse{Categories: categories}).Write(w, r)
}
