package video

import (
	"context"
	"net/http"
	"strings"

	"consult-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RoomStatusForm captures the subset of room status callback fields we care
// about. Twilio sends application/x-www-form-urlencoded by default.
//
// Keep it minimal and provider-adapter-only: the decision of what an ended
// room means for a call belongs to the session manager.
type RoomStatusForm struct {
	RoomSid             string
	RoomName            string
	RoomStatus          string
	StatusCallbackEvent string
	Timestamp           string
}

func ParseRoomStatusCallback(r *http.Request) (RoomStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return RoomStatusForm{}, err
	}
	return RoomStatusForm{
		RoomSid:             strings.TrimSpace(r.PostFormValue("RoomSid")),
		RoomName:            strings.TrimSpace(r.PostFormValue("RoomName")),
		RoomStatus:          strings.TrimSpace(r.PostFormValue("RoomStatus")),
		StatusCallbackEvent: strings.TrimSpace(r.PostFormValue("StatusCallbackEvent")),
		Timestamp:           strings.TrimSpace(r.PostFormValue("Timestamp")),
	}, nil
}

// SessionEvents is the inbound push contract from the room provider into the
// call core: a room that ended at the provider must drive its session to a
// terminal state.
type SessionEvents interface {
	HandleRoomEnded(ctx context.Context, roomHandle string) error
}

// StatusWebhookHandler receives provider room status callbacks.
type StatusWebhookHandler struct {
	Sessions SessionEvents
}

// HandleRoomStatus processes a room status callback.
// Always answers 200: the provider retries on non-2xx and a permanently
// failing event would otherwise retry forever.
func (h StatusWebhookHandler) HandleRoomStatus(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseRoomStatusCallback(c.Request)
	if err != nil {
		log.Error("room status parse failed", "err", err)
		c.String(http.StatusOK, "ignored")
		return
	}
	if form.RoomSid == "" {
		c.String(http.StatusOK, "ignored")
		return
	}

	log.Info("room status event",
		"room_sid", form.RoomSid,
		"room_status", form.RoomStatus,
		"event", form.StatusCallbackEvent,
	)

	ended := form.StatusCallbackEvent == "room-ended" || form.RoomStatus == "completed"
	if !ended || h.Sessions == nil {
		c.String(http.StatusOK, "ok")
		return
	}

	if err := h.Sessions.HandleRoomEnded(c.Request.Context(), form.RoomSid); err != nil {
		// Logged only; the session manager's idempotency makes replays safe.
		log.Error("room ended handling failed", "room_sid", form.RoomSid, "err", err)
	}
	c.String(http.StatusOK, "ok")
}
