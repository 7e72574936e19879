package hue

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"net"

	"github.com/pion/dtls/v2"

	"ambisync/internal/colormodel"
)

// StreamPort is the UDP port of the bridge entertainment stream.
const StreamPort = 2100

const colorSpaceXYB = 0x01

// XYB is a color in the CIE xy + brightness color space, each scaled to 16 bits.
type XYB struct {
	X, Y, Brightness uint16
}

// NewXYB converts c to xy chromaticity with the given brightness percentage.
func NewXYB(c colormodel.RGB, brightness float64) XYB {
	x, y, _ := c.Colorful().Xyy()
	return XYB{
		X:          scale16(x),
		Y:          scale16(y),
		Brightness: uint16(colormodel.PercentageOf(brightness, math.MaxUint16)),
	}
}

// ColorXYB converts c using its perceived lightness as brightness.
func ColorXYB(c colormodel.RGB) XYB {
	return NewXYB(c, colormodel.PerceivedLightness(c))
}

func scale16(v float64) uint16 {
	return uint16(math.Round(min(max(v, 0), 1) * math.MaxUint16))
}

// Streamer sends color data to the Hue bridge over DTLS.
type Streamer struct {
	conn       net.Conn
	areaID     string
	channelIDs []uint8
	seq        uint8
}

// DialStreamer establishes a DTLS connection to the bridge for entertainment
// streaming.
func DialStreamer(ctx context.Context, ip net.IP, username, clientkey string, area EntertainmentArea) (*Streamer, error) {
	psk, err := hex.DecodeString(clientkey)
	if err != nil {
		return nil, fmt.Errorf("decoding clientkey: %w", err)
	}

	addr := &net.UDPAddr{IP: ip, Port: StreamPort}
	conn, err := dtls.DialWithContext(ctx, "udp", addr, &dtls.Config{
		PSK: func(hint []byte) ([]byte, error) {
			return psk, nil
		},
		PSKIdentityHint:    []byte(username),
		CipherSuites:       []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_GCM_SHA256},
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, fmt.Errorf("DTLS handshake: %w", err)
	}

	return newStreamer(conn, area), nil
}

func newStreamer(conn net.Conn, area EntertainmentArea) *Streamer {
	return &Streamer{
		conn:       conn,
		areaID:     area.ID,
		channelIDs: area.ChannelIDs,
	}
}

// Send sends the given color to all channels.
func (s *Streamer) Send(c XYB) error {
	msg := BuildHueStreamMessage(s.areaID, s.channelIDs, c, s.seq)
	s.seq++
	if _, err := s.conn.Write(msg); err != nil {
		return fmt.Errorf("writing to DTLS: %w", err)
	}
	return nil
}

// Close closes the DTLS connection.
func (s *Streamer) Close() error {
	return s.conn.Close()
}

// BuildHueStreamMessage constructs a HueStream v2 binary message in the xy +
// brightness color space.
func BuildHueStreamMessage(areaID string, channelIDs []uint8, c XYB, seq uint8) []byte {
	// Header: 52 bytes + 7 bytes per channel
	msg := make([]byte, 52+7*len(channelIDs))

	copy(msg[0:9], "HueStream")
	msg[9] = 0x02  // major
	msg[10] = 0x00 // minor
	msg[11] = seq
	msg[14] = colorSpaceXYB

	// Entertainment configuration ID (36 ASCII chars, UUID format)
	copy(msg[16:52], areaID)

	offset := 52
	for _, ch := range channelIDs {
		msg[offset] = ch
		putUint16(msg[offset+1:], c.X)
		putUint16(msg[offset+3:], c.Y)
		putUint16(msg[offset+5:], c.Brightness)
		offset += 7
	}

	return msg
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}
