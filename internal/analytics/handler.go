package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

// maxTop bounds the top query parameter.
const maxTop = 100

// Handler serves the in-memory aggregate of search and interaction events.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats serves the current aggregate as JSON. The optional top parameter
// (1 to 100, default 10) sizes the top query, zero-result query and top
// document lists.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := DefaultTop
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTop {
			appErr := apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"top must be an integer between 1 and %d", maxTop)
			h.writeJSON(w, appErr.StatusCode, map[string]string{"error": appErr.Message})
			return
		}
		top = n
	}
	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, http.StatusOK, h.aggregator.StatsTop(top))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
