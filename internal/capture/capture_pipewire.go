package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenCastIface = "org.freedesktop.portal.ScreenCast"
	requestIface    = "org.freedesktop.portal.Request"

	portalTimeout = 120 * time.Second // user may need time to pick a screen
)

type pipeWireCapturer struct {
	*frameStream
	ctx    context.Context
	cancel context.CancelFunc
	cmd    *exec.Cmd
	dbConn *dbus.Conn // kept alive to hold the ScreenCast session
	pwFile *os.File   // PipeWire remote fd from the portal
}

func newPipeWireCapturer(opts Options) (Capturer, string, error) {
	if !hasExecutable("gst-launch-1.0") {
		return nil, "", fmt.Errorf("gst-launch-1.0 not found")
	}

	bounds, err := displayBounds(opts.Display)
	if err != nil {
		return nil, "", err
	}
	w, h := bounds.Dx(), bounds.Dy()

	dbConn, nodeID, pwFile, err := acquirePipeWireNode()
	if err != nil {
		return nil, "", fmt.Errorf("pipewire portal: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// GStreamer child process inherits pwFile via ExtraFiles.
	// ExtraFiles[0] becomes fd 3 in the child.
	cmd := exec.CommandContext(ctx, "gst-launch-1.0", "-q",
		"pipewiresrc", fmt.Sprintf("path=%d", nodeID), "fd=3",
		"!", "videorate",
		"!", "videoconvert",
		"!", "videoscale",
		"!", fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1", w, h, opts.FrameRate),
		"!", "fdsink", "fd=1",
	)
	cmd.ExtraFiles = []*os.File{pwFile}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		pwFile.Close()
		dbConn.Close()
		return nil, "", fmt.Errorf("gstreamer stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		pwFile.Close()
		dbConn.Close()
		return nil, "", fmt.Errorf("starting gstreamer: %w", err)
	}

	c := &pipeWireCapturer{
		frameStream: newFrameStream(w, h),
		ctx:         ctx,
		cancel:      cancel,
		cmd:         cmd,
		dbConn:      dbConn,
		pwFile:      pwFile,
	}

	go c.readFrames(stdout)

	if err := c.waitReady(firstFrameTimeout); err != nil {
		c.cancel()
		<-c.done
		_ = c.cmd.Wait()
		pwFile.Close()
		dbConn.Close()
		return nil, "", fmt.Errorf("gstreamer: %w", err)
	}

	return c, "PipeWire", nil
}

func (c *pipeWireCapturer) Close() error {
	c.cancel()
	<-c.done
	err := reap(c.ctx, c.cmd)
	c.pwFile.Close()
	c.dbConn.Close()
	return err
}

// acquirePipeWireNode negotiates a ScreenCast session via the XDG Desktop Portal
// and returns the D-Bus connection (must stay open), the PipeWire node ID,
// and a PipeWire remote file descriptor for GStreamer.
func acquirePipeWireNode() (*dbus.Conn, uint32, *os.File, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, 0, nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	if !conn.SupportsUnixFDs() {
		conn.Close()
		return nil, 0, nil, fmt.Errorf("D-Bus connection does not support Unix FD passing")
	}

	portal := conn.Object(portalDest, dbus.ObjectPath(portalPath))
	sender := senderToToken(conn.Names()[0])

	sessionResp, err := portalRequest(conn, portal, sender, "ambisync_req_create", "CreateSession",
		map[string]dbus.Variant{"session_handle_token": dbus.MakeVariant("ambisync_session")})
	if err != nil {
		conn.Close()
		return nil, 0, nil, err
	}

	sessionHandle, ok := sessionResp["session_handle"]
	if !ok {
		conn.Close()
		return nil, 0, nil, fmt.Errorf("CreateSession: no session_handle in response")
	}
	sessionPath := dbus.ObjectPath(sessionHandle.Value().(string))

	_, err = portalRequest(conn, portal, sender, "ambisync_req_select", "SelectSources",
		map[string]dbus.Variant{
			"types":    dbus.MakeVariant(uint32(1)), // 1 = monitor
			"multiple": dbus.MakeVariant(false),
		}, sessionPath)
	if err != nil {
		conn.Close()
		return nil, 0, nil, err
	}

	startResp, err := portalRequest(conn, portal, sender, "ambisync_req_start", "Start",
		map[string]dbus.Variant{}, sessionPath, "")
	if err != nil {
		conn.Close()
		return nil, 0, nil, err
	}

	nodeID, err := extractNodeID(startResp)
	if err != nil {
		conn.Close()
		return nil, 0, nil, err
	}

	// OpenPipeWireRemote returns a Unix fd that grants access to the stream.
	var pwFd dbus.UnixFD
	err = portal.Call(screenCastIface+".OpenPipeWireRemote", 0, sessionPath, map[string]dbus.Variant{}).Store(&pwFd)
	if err != nil {
		conn.Close()
		return nil, 0, nil, fmt.Errorf("OpenPipeWireRemote: %w", err)
	}

	pwFile := os.NewFile(uintptr(pwFd), "pipewire-remote")
	if pwFile == nil {
		conn.Close()
		return nil, 0, nil, fmt.Errorf("invalid PipeWire fd")
	}

	return conn, nodeID, pwFile, nil
}

// portalRequest calls a ScreenCast method that answers through a Request
// object and waits for its Response signal. Leading args are passed before
// the options map.
func portalRequest(conn *dbus.Conn, portal dbus.BusObject, sender, token, method string,
	options map[string]dbus.Variant, args ...interface{}) (map[string]dbus.Variant, error) {
	reqPath := dbus.ObjectPath(fmt.Sprintf("/org/freedesktop/portal/desktop/request/%s/%s", sender, token))

	sigCh := subscribeSignal(conn, reqPath)
	defer conn.RemoveSignal(sigCh)

	options["handle_token"] = dbus.MakeVariant(token)
	call := portal.Call(screenCastIface+"."+method, 0, append(args, options)...)
	if call.Err != nil {
		return nil, fmt.Errorf("%s: %w", method, call.Err)
	}

	resp, err := waitForResponse(sigCh, portalTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", method, err)
	}
	return resp, nil
}

// subscribeSignal registers a D-Bus signal match for the portal Response signal
// at the given path and returns a channel that receives matching signals.
func subscribeSignal(conn *dbus.Conn, path dbus.ObjectPath) chan *dbus.Signal {
	ch := make(chan *dbus.Signal, 1)
	conn.Signal(ch)
	conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0,
		fmt.Sprintf("type='signal',interface='%s',member='Response',path='%s'", requestIface, path))
	return ch
}

// waitForResponse waits for a portal Response signal and returns the results map.
// A non-zero response code indicates the user denied or the request failed.
func waitForResponse(ch chan *dbus.Signal, timeout time.Duration) (map[string]dbus.Variant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case sig := <-ch:
			if sig == nil {
				return nil, fmt.Errorf("signal channel closed")
			}
			if len(sig.Body) < 2 {
				continue
			}
			code, ok := sig.Body[0].(uint32)
			if !ok {
				continue
			}
			if code != 0 {
				return nil, fmt.Errorf("portal request denied (code %d)", code)
			}
			results, ok := sig.Body[1].(map[string]dbus.Variant)
			if !ok {
				return nil, fmt.Errorf("unexpected response type")
			}
			return results, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for portal response")
		}
	}
}

// senderToToken converts a D-Bus sender name like ":1.42" to "1_42" for use
// in request object paths.
func senderToToken(sender string) string {
	s := strings.TrimPrefix(sender, ":")
	return strings.ReplaceAll(s, ".", "_")
}

// extractNodeID pulls the PipeWire node ID from the Start response.
// The streams field is typed as a(ua{sv}).
func extractNodeID(resp map[string]dbus.Variant) (uint32, error) {
	streamsVariant, ok := resp["streams"]
	if !ok {
		return 0, fmt.Errorf("no streams in Start response")
	}

	var first []interface{}
	switch streams := streamsVariant.Value().(type) {
	case [][]interface{}:
		if len(streams) == 0 {
			return 0, fmt.Errorf("no streams returned")
		}
		first = streams[0]
	case []interface{}:
		if len(streams) == 0 {
			return 0, fmt.Errorf("no streams returned")
		}
		inner, ok := streams[0].([]interface{})
		if !ok {
			return 0, fmt.Errorf("unexpected stream entry type: %T", streams[0])
		}
		first = inner
	default:
		return 0, fmt.Errorf("unexpected streams type: %T", streamsVariant.Value())
	}

	if len(first) == 0 {
		return 0, fmt.Errorf("empty stream entry")
	}
	nodeID, ok := first[0].(uint32)
	if !ok {
		return 0, fmt.Errorf("unexpected node ID type: %T", first[0])
	}
	return nodeID, nil
}
