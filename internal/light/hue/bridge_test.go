package hue

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const areasJSON = `{"data":[
  {"id":"11111111-1111-1111-1111-111111111111","metadata":{"name":"TV"},"configuration_type":"screen","status":"inactive",
   "channels":[{"channel_id":0},{"channel_id":1}],"light_services":[{},{}]},
  {"id":"22222222-2222-2222-2222-222222222222","metadata":{"name":"Desk"},"configuration_type":"music","status":"inactive",
   "channels":[{"channel_id":4}],"light_services":[{}]}
]}`

func newTestBridge(t *testing.T, h http.HandlerFunc) *Bridge {
	t.Helper()
	srv := httptest.NewTLSServer(h)
	t.Cleanup(srv.Close)
	return NewBridge(strings.TrimPrefix(srv.URL, "https://"), "user")
}

func TestBridgeURL(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{name: "ipv4", host: "192.168.1.2", want: "https://192.168.1.2/api"},
		{name: "ipv6", host: "fe80::1", want: "https://[fe80::1]/api"},
		{name: "with port", host: "127.0.0.1:8443", want: "https://127.0.0.1:8443/api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bridgeURL(tt.host, "/api"))
		})
	}
}

func TestPair(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		wantUser     string
		wantKey      string
		wantErr      error
		wantAnyError bool
	}{
		{
			name:     "success",
			response: `[{"success":{"username":"abc","clientkey":"0011"}}]`,
			wantUser: "abc",
			wantKey:  "0011",
		},
		{
			name:     "link button",
			response: `[{"error":{"type":101,"description":"link button not pressed"}}]`,
			wantErr:  ErrLinkButtonNotPressed,
		},
		{
			name:         "other bridge error",
			response:     `[{"error":{"type":7,"description":"invalid value"}}]`,
			wantAnyError: true,
		},
		{name: "empty", response: `[]`, wantAnyError: true},
		{name: "neither", response: `[{}]`, wantAnyError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.Contains(t, string(body), `"generateclientkey":true`)
				io.WriteString(w, tt.response)
			})

			user, key, err := b.Pair(context.Background())
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAnyError:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantUser, user)
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}

func TestEntertainmentAreas(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user", r.Header.Get("hue-application-key"))
		assert.Equal(t, "/clip/v2/resource/entertainment_configuration", r.URL.Path)
		io.WriteString(w, areasJSON)
	})

	areas, err := b.EntertainmentAreas(context.Background())
	require.NoError(t, err)
	require.Len(t, areas, 2)

	assert.Equal(t, "TV", areas[0].Name)
	assert.Equal(t, []uint8{0, 1}, areas[0].ChannelIDs)
	assert.Equal(t, 2, areas[0].Lights)
	assert.Equal(t, "TV (2 channels, 2 lights)", areas[0].String())
	assert.Equal(t, []uint8{4}, areas[1].ChannelIDs)
}

func TestEntertainmentAreas_Unauthorized(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := b.EntertainmentAreas(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFindArea(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, areasJSON)
	})

	first, err := b.FindArea(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "TV", first.Name)

	desk, err := b.FindArea(context.Background(), "22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)
	assert.Equal(t, "Desk", desk.Name)

	_, err = b.FindArea(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAreaNotFound)
}

func TestActivateDeactivate(t *testing.T) {
	var (
		mu      sync.Mutex
		actions []string
	)
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/clip/v2/resource/entertainment_configuration/area-1", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		actions = append(actions, string(body))
		mu.Unlock()
	})

	require.NoError(t, b.Activate(context.Background(), "area-1"))
	require.NoError(t, b.Deactivate(context.Background(), "area-1"))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"action":"start"}`, `{"action":"stop"}`}, actions)
}

func TestActivate_HTTPError(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := b.Activate(context.Background(), "area-1")
	assert.ErrorContains(t, err, "HTTP 503")
}
