package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/putto11262002/roomrelay/core"
	"github.com/putto11262002/roomrelay/pkg/router"
)

type RegisterPayload struct {
	Username string `json:"username" validate:"required"`
}

type RegisterResponse struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (app *App) RootHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := io.WriteString(w, "Room relay server is running")
	return err
}

// WSHandler upgrades the request to a websocket for the user named in the
// username query parameter.
func (app *App) WSHandler(w http.ResponseWriter, r *http.Request) error {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		return router.NewJsonError(http.StatusBadRequest, "username is required")
	}
	// the upgrader has already answered the request when this fails
	if _, err := app.wsManager.Connect(username, w, r); err != nil {
		app.logger.Warn(fmt.Sprintf("websocket connect: %v", err))
	}
	return nil
}

func (app *App) GetMessagesHandler(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, app.relay.Dump())
}

func (app *App) GetUsersHandler(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, app.relay.Connections())
}

// GetRoomMessagesHandler serves one page of a room's history. Page 1 is the
// newest; a missing or unparsable page means 1. An empty list marks the end.
func (app *App) GetRoomMessagesHandler(w http.ResponseWriter, r *http.Request) error {
	room, err := url.PathUnescape(chi.URLParam(r, "room"))
	if err != nil {
		return router.NewJsonError(http.StatusBadRequest, "invalid room")
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page == 0 {
		page = 1
	}
	return writeJSON(w, http.StatusOK, app.relay.Page(room, page))
}

func (app *App) RegisterHandler(w http.ResponseWriter, r *http.Request) error {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return core.ErrRegistrationConflict
	}
	r.Body.Close()

	if err := validate.Struct(payload); err != nil {
		return core.ErrRegistrationConflict
	}
	if err := app.registrations.Register(payload.Username); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, RegisterResponse{Success: true})
}
