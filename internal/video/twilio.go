package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTwilioBaseURL = "https://video.twilio.com/v1"

// TwilioConfig carries the credentials and tuning for the Twilio Video adapter.
type TwilioConfig struct {
	AccountSID string
	APIKeySID  string
	APISecret  string

	// BaseURL overrides the API endpoint (tests). Defaults to Twilio's.
	BaseURL string

	// RequestTimeout bounds each REST call. Room creation past this deadline
	// is treated as ErrRoomCreationFailed.
	RequestTimeout time.Duration

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration
}

func (c TwilioConfig) withDefaults() TwilioConfig {
	out := c
	if out.BaseURL == "" {
		out.BaseURL = defaultTwilioBaseURL
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 10 * time.Second
	}
	if out.TokenTTL <= 0 {
		out.TokenTTL = 4 * time.Hour
	}
	return out
}

// TwilioProvider talks to the Twilio Video REST API.
//
// Access tokens are Twilio-format JWTs (grant-based), signed with the API key
// secret; no SDK dependency is needed for either path.
type TwilioProvider struct {
	cfg    TwilioConfig
	client *http.Client
	clock  func() time.Time
}

func NewTwilioProvider(cfg TwilioConfig) *TwilioProvider {
	cfg = cfg.withDefaults()
	return &TwilioProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		clock:  time.Now,
	}
}

func (p *TwilioProvider) Name() string { return "twilio_video" }

func (p *TwilioProvider) CreateRoom(ctx context.Context, sessionID string) (Room, error) {
	if sessionID == "" {
		return Room{}, ErrRoomCreationFailed
	}

	form := url.Values{}
	form.Set("UniqueName", "call-"+sessionID)
	form.Set("Type", "group")

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/Rooms", strings.NewReader(form.Encode()))
	if err != nil {
		return Room{}, fmt.Errorf("%w: %v", ErrRoomCreationFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.cfg.APIKeySID, p.cfg.APISecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return Room{}, fmt.Errorf("%w: %v", ErrRoomCreationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Room{}, fmt.Errorf("%w: provider status %d", ErrRoomCreationFailed, resp.StatusCode)
	}

	var body struct {
		SID        string `json:"sid"`
		UniqueName string `json:"unique_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.SID == "" {
		return Room{}, fmt.Errorf("%w: bad provider response", ErrRoomCreationFailed)
	}
	return Room{Handle: body.SID, Name: body.UniqueName}, nil
}

func (p *TwilioProvider) IssueAccessToken(ctx context.Context, room Room, participantID string, role ParticipantRole) (string, error) {
	_ = ctx
	if room.Handle == "" || participantID == "" {
		return "", fmt.Errorf("video: token requires room and participant")
	}

	now := p.clock().UTC()
	claims := jwt.MapClaims{
		"jti": p.cfg.APIKeySID + "-" + uuid.NewString(),
		"iss": p.cfg.APIKeySID,
		"sub": p.cfg.AccountSID,
		"iat": now.Unix(),
		"exp": now.Add(p.cfg.TokenTTL).Unix(),
		"grants": map[string]any{
			"identity": participantID,
			"video": map[string]any{
				"room": room.Handle,
			},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	// Twilio rejects tokens without its content-type header field.
	token.Header["cty"] = "twilio-fpa;v=1"
	_ = role // role is carried in session state; Twilio grants are identity-only
	return token.SignedString([]byte(p.cfg.APISecret))
}

func (p *TwilioProvider) CloseRoom(ctx context.Context, handle string) error {
	if handle == "" {
		return fmt.Errorf("video: room handle required")
	}

	form := url.Values{}
	form.Set("Status", "completed")

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/Rooms/"+handle, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.cfg.APIKeySID, p.cfg.APISecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("video: close room status %d", resp.StatusCode)
	}
	return nil
}

var _ RoomProvider = (*TwilioProvider)(nil)
