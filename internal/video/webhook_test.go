package video

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseRoomStatusCallback(t *testing.T) {
	body := strings.NewReader("RoomSid=RM123&RoomName=call-s1&RoomStatus=completed&StatusCallbackEvent=room-ended&Timestamp=2026-03-01T12%3A00%3A00Z")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/video/status", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := ParseRoomStatusCallback(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.RoomSid != "RM123" {
		t.Fatalf("expected RoomSid, got %q", form.RoomSid)
	}
	if form.RoomName != "call-s1" || form.RoomStatus != "completed" {
		t.Fatalf("unexpected room fields: %q %q", form.RoomName, form.RoomStatus)
	}
	if form.StatusCallbackEvent != "room-ended" {
		t.Fatalf("unexpected event: %q", form.StatusCallbackEvent)
	}
}

type fakeSessionEvents struct {
	ended []string
	err   error
}

func (f *fakeSessionEvents) HandleRoomEnded(ctx context.Context, roomHandle string) error {
	f.ended = append(f.ended, roomHandle)
	return f.err
}

func postStatus(r *gin.Engine, form string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/video/status", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestHandleRoomStatus_RoomEndedNotifiesSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)

	events := &fakeSessionEvents{}
	r := gin.New()
	r.POST("/webhooks/video/status", StatusWebhookHandler{Sessions: events}.HandleRoomStatus)

	w := postStatus(r, "RoomSid=RM9&RoomStatus=completed&StatusCallbackEvent=room-ended")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(events.ended) != 1 || events.ended[0] != "RM9" {
		t.Fatalf("expected room-ended dispatched for RM9, got %v", events.ended)
	}
}

func TestHandleRoomStatus_IgnoresNonTerminalEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)

	events := &fakeSessionEvents{}
	r := gin.New()
	r.POST("/webhooks/video/status", StatusWebhookHandler{Sessions: events}.HandleRoomStatus)

	w := postStatus(r, "RoomSid=RM9&RoomStatus=in-progress&StatusCallbackEvent=participant-connected")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(events.ended) != 0 {
		t.Fatalf("non-terminal event must not dispatch, got %v", events.ended)
	}
}

func TestHandleRoomStatus_AlwaysAnswers200(t *testing.T) {
	gin.SetMode(gin.TestMode)

	events := &fakeSessionEvents{err: errors.New("session store down")}
	r := gin.New()
	r.POST("/webhooks/video/status", StatusWebhookHandler{Sessions: events}.HandleRoomStatus)

	// Handler failure must not trigger provider retries.
	if w := postStatus(r, "RoomSid=RM9&StatusCallbackEvent=room-ended"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 on handler failure, got %d", w.Code)
	}
	// Missing RoomSid is ignored, not an error.
	if w := postStatus(r, "RoomStatus=completed"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 on missing RoomSid, got %d", w.Code)
	}
	if len(events.ended) != 1 {
		t.Fatalf("expected exactly one dispatch, got %v", events.ended)
	}
}
