package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/crewscore/internal/app/recalc"
)

// RecalculateDependencies defines the interface for batch recalculation.
type RecalculateDependencies interface {
	Recalculate(ctx context.Context, groupID string) (recalc.Result, error)
}

// RecalculateHandler handles recalculation requests.
type RecalculateHandler struct {
	deps RecalculateDependencies
}

// NewRecalculateHandler creates a new recalculation handler.
func NewRecalculateHandler(deps RecalculateDependencies) *RecalculateHandler {
	return &RecalculateHandler{deps: deps}
}

// HandleRecalculate handles POST /groups/{groupID}/recalculate.
// A partial failure still answers 200 with the failed members listed.
func (h *RecalculateHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	const op = "api.recalculate"
	groupID := mux.Vars(r)["groupID"]

	res, err := h.deps.Recalculate(r.Context(), groupID)
	if err != nil && !errors.Is(err, recalc.ErrPartialFailure) {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if res.Failed == nil {
		res.Failed = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}
