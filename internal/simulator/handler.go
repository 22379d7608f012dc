package simulator

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/okian/salesboard/pkg/logger"
)

type dealResponse struct {
	ID     string    `json:"id"`
	Seller string    `json:"seller"`
	Amount float64   `json:"amount"`
	At     time.Time `json:"at"`
}

type saleRequest struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Handler returns the backend routes: GET /people, /goals, /data, /deals and
// POST /sales for scripted demos.
func (m *Market) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/people", func(w http.ResponseWriter, _ *http.Request) {
		m.writeJSON(w, http.StatusOK, m.People())
	}).Methods(http.MethodGet)
	r.HandleFunc("/goals", func(w http.ResponseWriter, _ *http.Request) {
		m.writeJSON(w, http.StatusOK, m.Goals())
	}).Methods(http.MethodGet)
	r.HandleFunc("/data", func(w http.ResponseWriter, _ *http.Request) {
		m.writeJSON(w, http.StatusOK, m.Snapshot())
	}).Methods(http.MethodGet)
	r.HandleFunc("/deals", func(w http.ResponseWriter, _ *http.Request) {
		deals := m.Deals()
		out := make([]dealResponse, 0, len(deals))
		for _, d := range deals {
			out = append(out, dealResponse{ID: d.ID, Seller: d.Seller, Amount: d.Amount, At: d.At})
		}
		m.writeJSON(w, http.StatusOK, out)
	}).Methods(http.MethodGet)
	r.HandleFunc("/sales", m.handleSale).Methods(http.MethodPost)
	return r
}

func (m *Market) handleSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil || req.Name == "" || req.Amount <= 0 {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and positive amount required"})
		return
	}
	m.AddSale(req.Name, req.Amount)
	m.logger.Info(r.Context(), "sale added", logger.String("seller", req.Name), logger.Float64("amount", req.Amount))
	m.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (m *Market) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Warn(context.Background(), "response encode failed", logger.Error(err))
	}
}

func formatTarget(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
