package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/DoyleJ11/tugofwar/internal/feed"
	"github.com/DoyleJ11/tugofwar/pkg/types"
)

// State returns the latest published snapshot.
func State(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := f.State(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, types.ServerMessage{Type: types.MsgError, Error: "feed stopped"})
			return
		}
		if !view.Published {
			writeJSON(w, http.StatusServiceUnavailable, types.ServerMessage{Type: types.MsgError, Error: "match not started"})
			return
		}
		writeJSON(w, http.StatusOK, types.ServerMessage{
			Type:    types.MsgStateSnapshot,
			Version: view.Latest.Version,
			State:   view.Latest.Wire(),
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
