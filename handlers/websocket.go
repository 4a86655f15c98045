package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"quickbite/api/notify"
)

// ValidateToken guards the WebSocket upgrade. The token carries the
// already-authenticated actor identity; the core trusts it from here on.
func (h *Handler) ValidateToken(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return fiber.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		return fiber.ErrUnauthorized
	}

	return c.Next()
}

type wsMessage struct {
	Action string `json:"action"` // join_user | join_restaurant | join_rider | join_order | leave
	ID     string `json:"id"`
	Room   string `json:"room,omitempty"` // leave only
}

// HandleWS runs one subscriber connection. Clients join the rooms they
// care about; all memberships are dropped when the connection closes.
func (h *Handler) HandleWS(c *websocket.Conn) {
	connID := uuid.NewString()
	defer h.hub.Drop(connID)

	for {
		var msg wsMessage
		if err := c.ReadJSON(&msg); err != nil {
			break
		}

		room := roomFor(msg.Action, msg.ID)
		switch {
		case msg.Action == "leave" && msg.Room != "":
			h.hub.Unsubscribe(connID, msg.Room)
		case room != "":
			h.hub.Subscribe(connID, room, c)
		default:
			log.Printf("ws: unknown action %q from %s", msg.Action, connID)
		}
	}
}

func roomFor(action, id string) string {
	if id == "" {
		return ""
	}
	switch action {
	case "join_user":
		return notify.UserRoom(id)
	case "join_restaurant":
		return notify.RestaurantRoom(id)
	case "join_rider":
		return notify.RiderRoom(id)
	case "join_order":
		return notify.OrderRoom(id)
	}
	return ""
}
