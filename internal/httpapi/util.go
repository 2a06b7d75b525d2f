package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"wisefido-rppg/internal/session"
)

// SessionHeader carries the session id in both directions.
const SessionHeader = "X-Session-ID"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// sessionID picks the id from the header, then the query, then fallback (a body field).
// A fresh id is generated when none is present.
func sessionID(r *http.Request, fallback string) string {
	for _, v := range []string{r.Header.Get(SessionHeader), r.URL.Query().Get("session_id"), fallback} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return session.NewID()
}
