package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"benchtalk/internal/auth"
	"benchtalk/transcript"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID       uint64 `json:"user_id"`
	SessionToken string `json:"session_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes mounts the REST surface next to the WebSocket endpoint.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", g.HandleWebSocket)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/auth/register", g.handleRegister)
	mux.HandleFunc("/api/auth/login", g.handleLogin)
	mux.HandleFunc("/api/auth/logout", g.handleLogout)
	mux.HandleFunc("/api/scenes", g.handleListScenes)
	mux.HandleFunc("/api/scenes/", g.handleGetScene)
	mux.HandleFunc("/api/snapshot", g.handleSnapshot)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, token, err := g.auth.Register(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrUsernameTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "register failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, authResponse{UserID: userID, SessionToken: token})
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, token, err := g.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{UserID: userID, SessionToken: token})
}

func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	g.auth.Logout(token)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleListScenes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !g.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	items, err := g.store.ListRecent(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list scenes failed")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (g *Gateway) handleGetScene(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !g.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	sceneID := strings.TrimPrefix(r.URL.Path, "/api/scenes/")
	if sceneID == "" {
		writeError(w, http.StatusBadRequest, "scene id is required")
		return
	}

	summary, turns, err := g.store.GetScene(r.Context(), sceneID)
	if err != nil {
		if errors.Is(err, transcript.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scene not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get scene failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"turns":   turns,
	})
}

func (g *Gateway) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !g.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}
	writeJSON(w, http.StatusOK, g.room.Snapshot())
}

func (g *Gateway) authorized(r *http.Request) bool {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	_, _, ok := g.auth.ResolveSession(token)
	return ok
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func bearerToken(raw string) string {
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
