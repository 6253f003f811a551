package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
)

// NetworkHandler serves the live tracking table and, when storage is
// configured, the last stored state of networks no longer tracked.
type NetworkHandler struct {
	Tracker ports.Tracker
	Storage ports.Storage
}

// NewNetworkHandler creates a NetworkHandler. storage may be nil.
func NewNetworkHandler(tracker ports.Tracker, storage ports.Storage) *NetworkHandler {
	return &NetworkHandler{Tracker: tracker, Storage: storage}
}

type networkView struct {
	domain.TrackedNetwork
	Display string `json:"display_ssid"`
	Live    bool   `json:"live"`
}

func view(n domain.TrackedNetwork, live bool) networkView {
	return networkView{TrackedNetwork: n, Display: n.DisplaySSID(), Live: live}
}

// HandleList returns every tracked network. ?source=stored lists the
// snapshot database instead.
func (h *NetworkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	live := true
	nets := h.Tracker.Networks()

	if r.URL.Query().Get("source") == "stored" {
		if h.Storage == nil {
			writeError(w, http.StatusServiceUnavailable, "snapshot storage is disabled")
			return
		}
		stored, err := h.Storage.GetAllNetworks(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		nets, live = stored, false
	}

	out := make([]networkView, 0, len(nets))
	for _, n := range nets {
		out = append(out, view(n, live))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet returns one network by BSSID, falling back to storage.
func (h *NetworkHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	bssid, err := domain.ParseMAC(mux.Vars(r)["bssid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if n, ok := h.Tracker.Network(bssid); ok {
		writeJSON(w, http.StatusOK, view(n, true))
		return
	}

	if h.Storage != nil {
		stored, err := h.Storage.GetNetwork(r.Context(), bssid)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, view(*stored, false))
			return
		case !errors.Is(err, domain.ErrNetworkNotFound):
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeError(w, http.StatusNotFound, domain.ErrNetworkNotFound.Error())
}

// HandleClients returns every tracked client, optionally narrowed to one
// network with ?bssid=.
func (h *NetworkHandler) HandleClients(w http.ResponseWriter, r *http.Request) {
	var filter *domain.MAC
	if v := r.URL.Query().Get("bssid"); v != "" {
		bssid, err := domain.ParseMAC(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = &bssid
	}

	out := make([]domain.TrackedClient, 0)
	for _, c := range h.Tracker.Clients() {
		if filter == nil || c.BSSID == *filter {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}
