package video

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testTwilioConfig(baseURL string) TwilioConfig {
	return TwilioConfig{
		AccountSID: "AC_test",
		APIKeySID:  "SK_test",
		APISecret:  "secret",
		BaseURL:    baseURL,
	}
}

func TestTwilioCreateRoom(t *testing.T) {
	var gotPath, gotUser, gotUnique, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		_ = r.ParseForm()
		gotUnique = r.PostFormValue("UniqueName")
		gotType = r.PostFormValue("Type")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"RM42","unique_name":"call-s1"}`))
	}))
	defer srv.Close()

	p := NewTwilioProvider(testTwilioConfig(srv.URL))
	room, err := p.CreateRoom(context.Background(), "s1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if room.Handle != "RM42" || room.Name != "call-s1" {
		t.Fatalf("unexpected room: %+v", room)
	}
	if gotPath != "/Rooms" || gotUser != "SK_test" {
		t.Fatalf("unexpected request: path=%q user=%q", gotPath, gotUser)
	}
	if gotUnique != "call-s1" || gotType != "group" {
		t.Fatalf("unexpected form: %q %q", gotUnique, gotType)
	}
}

func TestTwilioCreateRoomFailureWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewTwilioProvider(testTwilioConfig(srv.URL))
	if _, err := p.CreateRoom(context.Background(), "s1"); !errors.Is(err, ErrRoomCreationFailed) {
		t.Fatalf("expected ErrRoomCreationFailed, got %v", err)
	}
}

func TestTwilioAccessTokenGrants(t *testing.T) {
	p := NewTwilioProvider(testTwilioConfig("http://unused"))
	p.clock = func() time.Time { return time.Unix(1760000000, 0) }

	raw, err := p.IssueAccessToken(context.Background(), Room{Handle: "RM42"}, "member-1", ParticipantRoleMember)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	parsed, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not verify: %v", err)
	}
	if parsed.Header["cty"] != "twilio-fpa;v=1" {
		t.Fatalf("expected twilio content type header, got %v", parsed.Header["cty"])
	}

	claims := parsed.Claims.(jwt.MapClaims)
	if claims["iss"] != "SK_test" || claims["sub"] != "AC_test" {
		t.Fatalf("unexpected iss/sub: %v %v", claims["iss"], claims["sub"])
	}
	grants, ok := claims["grants"].(map[string]any)
	if !ok {
		t.Fatalf("expected grants object, got %T", claims["grants"])
	}
	if grants["identity"] != "member-1" {
		t.Fatalf("expected identity grant, got %v", grants["identity"])
	}
	videoGrant, ok := grants["video"].(map[string]any)
	if !ok || videoGrant["room"] != "RM42" {
		t.Fatalf("expected video room grant, got %v", grants["video"])
	}

	exp, _ := claims.GetExpirationTime()
	iat, _ := claims.GetIssuedAt()
	if exp.Sub(iat.Time) != 4*time.Hour {
		t.Fatalf("expected default 4h lifetime, got %v", exp.Sub(iat.Time))
	}
}

func TestTwilioCloseRoomSetsCompleted(t *testing.T) {
	var gotPath, gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotStatus = r.PostFormValue("Status")
		_, _ = w.Write([]byte(`{"sid":"RM42","status":"completed"}`))
	}))
	defer srv.Close()

	p := NewTwilioProvider(testTwilioConfig(srv.URL))
	if err := p.CloseRoom(context.Background(), "RM42"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotPath != "/Rooms/RM42" || gotStatus != "completed" {
		t.Fatalf("unexpected request: %q %q", gotPath, gotStatus)
	}
}
