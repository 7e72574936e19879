// Package hue streams colors to a Philips Hue entertainment area.
package hue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// ErrLinkButtonNotPressed is returned by Pair when the user has not yet
// pressed the link button on the Hue bridge.
var ErrLinkButtonNotPressed = errors.New("link button not pressed")

// ErrUnauthorized is returned when the bridge rejects the API credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrAreaNotFound is returned when the configured entertainment area does not exist.
var ErrAreaNotFound = errors.New("entertainment area not found")

// Bridge talks to the REST API of a Hue bridge.
type Bridge struct {
	// Host is the bridge address, optionally with a port.
	Host     string
	Username string

	client *http.Client
}

// NewBridge returns a client for the bridge at host. Bridges use self-signed
// certificates, so verification is skipped.
func NewBridge(host, username string) *Bridge {
	return &Bridge{
		Host:     host,
		Username: username,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Pair registers a new application with the bridge. The user must press the
// link button on the bridge before calling this.
func (b *Bridge) Pair(ctx context.Context) (username, clientkey string, err error) {
	body := strings.NewReader(`{"devicetype":"ambisync#device","generateclientkey":true}`)
	req, err := b.newRequest(ctx, http.MethodPost, "/api", body)
	if err != nil {
		return "", "", fmt.Errorf("creating pair request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("pairing request: %w", err)
	}
	defer resp.Body.Close()

	var result []pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("decoding pair response: %w", err)
	}

	if len(result) == 0 {
		return "", "", fmt.Errorf("empty pair response")
	}

	r := result[0]
	if r.Error != nil {
		if r.Error.Type == 101 {
			return "", "", ErrLinkButtonNotPressed
		}
		return "", "", fmt.Errorf("bridge error %d: %s", r.Error.Type, r.Error.Description)
	}

	if r.Success == nil {
		return "", "", fmt.Errorf("unexpected pair response: no success or error")
	}

	return r.Success.Username, r.Success.Clientkey, nil
}

// EntertainmentArea represents a Hue entertainment configuration.
type EntertainmentArea struct {
	ID         string
	Name       string
	Type       string
	Status     string
	ChannelIDs []uint8
	Lights     int
}

func (a EntertainmentArea) String() string {
	return fmt.Sprintf("%s (%d channels, %d lights)", a.Name, len(a.ChannelIDs), a.Lights)
}

// EntertainmentAreas retrieves the entertainment configurations of the bridge.
func (b *Bridge) EntertainmentAreas(ctx context.Context) ([]EntertainmentArea, error) {
	req, err := b.newRequest(ctx, http.MethodGet, "/clip/v2/resource/entertainment_configuration", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching entertainment areas: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}

	var result entertainmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding entertainment response: %w", err)
	}

	areas := make([]EntertainmentArea, len(result.Data))
	for i, d := range result.Data {
		channelIDs := make([]uint8, len(d.Channels))
		for j, ch := range d.Channels {
			channelIDs[j] = ch.ChannelID
		}
		areas[i] = EntertainmentArea{
			ID:         d.ID,
			Name:       d.Metadata.Name,
			Type:       d.ConfigurationType,
			Status:     d.Status,
			ChannelIDs: channelIDs,
			Lights:     len(d.LightServices),
		}
	}

	return areas, nil
}

// FindArea returns the area with the given ID, or the first area when id is empty.
func (b *Bridge) FindArea(ctx context.Context, id string) (EntertainmentArea, error) {
	areas, err := b.EntertainmentAreas(ctx)
	if err != nil {
		return EntertainmentArea{}, err
	}
	for _, a := range areas {
		if id == "" || a.ID == id {
			return a, nil
		}
	}
	return EntertainmentArea{}, fmt.Errorf("%w: %q", ErrAreaNotFound, id)
}

// Activate tells the bridge to start entertainment mode for the given area.
func (b *Bridge) Activate(ctx context.Context, areaID string) error {
	return b.setAreaAction(ctx, areaID, "start")
}

// Deactivate tells the bridge to stop entertainment mode for the given area.
func (b *Bridge) Deactivate(ctx context.Context, areaID string) error {
	return b.setAreaAction(ctx, areaID, "stop")
}

func (b *Bridge) setAreaAction(ctx context.Context, areaID, action string) error {
	body := strings.NewReader(fmt.Sprintf(`{"action":%q}`, action))
	req, err := b.newRequest(ctx, http.MethodPut, "/clip/v2/resource/entertainment_configuration/"+areaID, body)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", action, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s area: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s area: HTTP %d", action, resp.StatusCode)
	}
	return nil
}

func (b *Bridge) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, bridgeURL(b.Host, path), body)
	if err != nil {
		return nil, err
	}
	if b.Username != "" {
		req.Header.Set("hue-application-key", b.Username)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func bridgeURL(host, path string) string {
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		host = "[" + host + "]"
	}
	return "https://" + host + path
}

// JSON mapping structs

type pairResponse struct {
	Success *pairSuccess `json:"success"`
	Error   *pairError   `json:"error"`
}

type pairSuccess struct {
	Username  string `json:"username"`
	Clientkey string `json:"clientkey"`
}

type pairError struct {
	Type        int    `json:"type"`
	Description string `json:"description"`
}

type entertainmentResponse struct {
	Data []entertainmentData `json:"data"`
}

type entertainmentData struct {
	ID                string            `json:"id"`
	Metadata          entertainmentMeta `json:"metadata"`
	ConfigurationType string            `json:"configuration_type"`
	Status            string            `json:"status"`
	Channels          []channelData     `json:"channels"`
	LightServices     []json.RawMessage `json:"light_services"`
}

type entertainmentMeta struct {
	Name string `json:"name"`
}

type channelData struct {
	ChannelID uint8 `json:"channel_id"`
}
