package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/crewscore/internal/domain/types"
)

// ScoreDependencies defines the interface for on-demand member scoring.
type ScoreDependencies interface {
	MemberScore(ctx context.Context, groupID, memberID string) (types.MemberScoreResponse, error)
}

// ScoreHandler handles member score requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleGetScore handles GET /groups/{groupID}/members/{memberID}/score.
func (h *ScoreHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_score"
	vars := mux.Vars(r)

	resp, err := h.deps.MemberScore(r.Context(), vars["groupID"], vars["memberID"])
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}
