package websocket

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vodpipeline/mediaconvert-trigger/internal/utils/jwt"
	"github.com/vodpipeline/mediaconvert-trigger/internal/utils/response"
	wsClient "github.com/vodpipeline/mediaconvert-trigger/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin
		return true
	},
}

// FeedHandler upgrades to a one-way outcome feed. The token is passed as
// ?token= and an optional ?bucket= narrows the feed to one source bucket.
// @Summary Outcome feed
// @Description Upgrade to a websocket streaming job outcome events
// @Tags feed
// @Param token query string true "JWT token"
// @Param bucket query string false "Only events for this source bucket"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} response.Response "Unauthorized"
// @Router /v1/feed [get]
func FeedHandler(hub *wsClient.Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			slog.Warn("Feed connection attempted without token")
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("token required")))
			return
		}

		subscriberID, err := jwt.ExtractSubjectFromToken(token, jwtSecret)
		if err != nil {
			slog.Warn("Feed connection attempted with invalid token", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("invalid token")))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("Failed to upgrade feed connection", slog.String("error", err.Error()))
			return
		}

		client := wsClient.NewClient(conn, subscriberID, r.URL.Query().Get("bucket"), hub)
		if !hub.RegisterClient(client) {
			conn.Close()
			return
		}
		client.Start()
	}
}
