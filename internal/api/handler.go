// Package api serves a read-only HTTP view of a running Session:
// status, station occupancy, buffer levels, and the runtime-adjustable
// speed factor.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/krugerplant/linesim/internal/config"
	"github.com/krugerplant/linesim/internal/session"
)

// Handler serves the status API for one Session.
type Handler struct {
	plantName string
	sess      *session.Session
	rt        *config.RuntimeConfig
}

// NewHandler creates a Handler bound to a Session and its RuntimeConfig.
func NewHandler(plantName string, sess *session.Session, rt *config.RuntimeConfig) *Handler {
	return &Handler{plantName: plantName, sess: sess, rt: rt}
}

// HandleStatus handles GET /api/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := int64(h.sess.Clock.Now())
	snap := h.sess.Sched.Snapshot(now)

	resp := StatusResponse{
		PlantName:  h.plantName,
		SessionID:  h.sess.ID.String(),
		ClockState: h.sess.Clock.State().String(),
		Now:        now,
	}
	for _, shop := range snap.Shops {
		shopStatus := ShopStatus{Name: shop.Name}
		for _, line := range shop.Lines {
			shopStatus.Lines = append(shopStatus.Lines, LineStatus{
				Key: line.Key, OEE: line.OEE, JPHDynamic: line.JPHDynamic, CarsProduced: line.CarsProduced,
			})
		}
		resp.Shops = append(resp.Shops, shopStatus)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleStations handles GET /api/stations.
func (h *Handler) HandleStations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := int64(h.sess.Clock.Now())
	snap := h.sess.Sched.Snapshot(now)

	resp := StationListResponse{}
	for _, st := range snap.Stations {
		resp.Stations = append(resp.Stations, StationInfo{
			Key: st.Key, Shop: st.Shop, Line: st.Line, Name: st.Name,
			Occupied: st.Occupied, CurrentItem: st.CurrentItem,
			IsStopped: st.IsStopped, StopReason: st.StopReason,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleBuffers handles GET /api/buffers.
func (h *Handler) HandleBuffers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := int64(h.sess.Clock.Now())
	snap := h.sess.Sched.Snapshot(now)

	resp := BufferListResponse{}
	for _, b := range snap.Buffers {
		resp.Buffers = append(resp.Buffers, BufferInfo{
			ID: b.ID, Kind: b.Kind, Count: b.Count, Capacity: b.Capacity, Status: b.Status,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleConfig handles GET and POST /api/config.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap := h.rt.Snapshot()
		writeJSON(w, http.StatusOK, ConfigResponse{SpeedFactor: snap.SpeedFactor, BasePeriodMs: snap.BasePeriod})

	case http.MethodPost:
		var req ConfigUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.SpeedFactor != nil {
			if err := h.rt.SetSpeedFactor(*req.SpeedFactor); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		snap := h.rt.Snapshot()
		writeJSON(w, http.StatusOK, ConfigResponse{SpeedFactor: snap.SpeedFactor, BasePeriodMs: snap.BasePeriod})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
