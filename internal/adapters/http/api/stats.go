package api

import (
	"net/http"

	"github.com/okian/salesboard/internal/domain/sequencer"
)

// Controller is the part of the sequencer the HTTP surface drives.
type Controller interface {
	Refresh() bool
	Status() sequencer.Status
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// StateHandler serves GET /state and POST /refresh.
type StateHandler struct {
	controller Controller
	stats      StatsProvider
	viewers    func() int
}

// NewStateHandler creates a new state handler. stats may be nil.
func NewStateHandler(c Controller, stats StatsProvider, viewers func() int) *StateHandler {
	return &StateHandler{controller: c, stats: stats, viewers: viewers}
}

type stateResponse struct {
	Sequencer sequencer.Status `json:"sequencer"`
	Viewers   int              `json:"viewers"`
	Service   map[string]any   `json:"service,omitempty"`
}

// HandleState reports sequencer status, viewer count and service stats.
func (h *StateHandler) HandleState(w http.ResponseWriter, _ *http.Request) {
	resp := stateResponse{Sequencer: h.controller.Status()}
	if h.viewers != nil {
		resp.Viewers = h.viewers()
	}
	if h.stats != nil {
		resp.Service = h.stats.GetStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

type refreshResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// HandleRefresh requests an immediate poll. It answers 409 while an
// interstitial holds the sequencer.
func (h *StateHandler) HandleRefresh(w http.ResponseWriter, _ *http.Request) {
	if !h.controller.Refresh() {
		writeJSON(w, http.StatusConflict, refreshResponse{
			Status: "discarded",
			State:  h.controller.Status().State.String(),
		})
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{
		Status: "accepted",
		State:  h.controller.Status().State.String(),
	})
}
