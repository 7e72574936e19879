package hue

import (
	"testing"

	"ambisync/internal/colormodel"
)

func TestBuildHueStreamMessage_Header(t *testing.T) {
	areaID := "abcdefgh-1234-5678-9abc-def012345678"
	channels := []uint8{0, 1}

	msg := BuildHueStreamMessage(areaID, channels, XYB{X: 1, Y: 2, Brightness: 3}, 42)

	// Total length: 52 header + 7*2 channels = 66
	if len(msg) != 66 {
		t.Fatalf("expected length 66, got %d", len(msg))
	}

	if string(msg[0:9]) != "HueStream" {
		t.Errorf("expected magic 'HueStream', got %q", string(msg[0:9]))
	}

	if msg[9] != 0x02 {
		t.Errorf("expected major version 0x02, got 0x%02x", msg[9])
	}
	if msg[10] != 0x00 {
		t.Errorf("expected minor version 0x00, got 0x%02x", msg[10])
	}

	if msg[11] != 42 {
		t.Errorf("expected sequence 42, got %d", msg[11])
	}

	if msg[14] != 0x01 {
		t.Errorf("expected color space 0x01 (xy+brightness), got 0x%02x", msg[14])
	}

	if string(msg[16:52]) != areaID {
		t.Errorf("expected area ID %q, got %q", areaID, string(msg[16:52]))
	}
}

func TestBuildHueStreamMessage_ChannelData(t *testing.T) {
	areaID := "abcdefgh-1234-5678-9abc-def012345678"
	channels := []uint8{0, 3}
	c := XYB{X: 0xabcd, Y: 0x1234, Brightness: 0xffff}

	msg := BuildHueStreamMessage(areaID, channels, c, 0)

	for i, off := range []int{52, 59} {
		if msg[off] != channels[i] {
			t.Errorf("channel %d: expected ID %d, got %d", i, channels[i], msg[off])
		}
		x := uint16(msg[off+1])<<8 | uint16(msg[off+2])
		y := uint16(msg[off+3])<<8 | uint16(msg[off+4])
		bri := uint16(msg[off+5])<<8 | uint16(msg[off+6])
		if x != c.X || y != c.Y || bri != c.Brightness {
			t.Errorf("channel %d: got x=%#04x y=%#04x bri=%#04x, want %+v", i, x, y, bri, c)
		}
	}
}

func TestBuildHueStreamMessage_ShortAreaID(t *testing.T) {
	msg := BuildHueStreamMessage("short", []uint8{5}, XYB{}, 255)

	// Total length: 52 + 7 = 59
	if len(msg) != 59 {
		t.Fatalf("expected length 59, got %d", len(msg))
	}
	if string(msg[16:21]) != "short" {
		t.Errorf("expected area ID prefix 'short', got %q", string(msg[16:21]))
	}
	for i := 21; i < 52; i++ {
		if msg[i] != 0 {
			t.Errorf("expected padding byte %d to be 0, got %d", i, msg[i])
		}
	}
}

func TestColorXYB(t *testing.T) {
	tests := []struct {
		name       string
		color      colormodel.RGB
		x, y       uint16
		brightness uint16
	}{
		// D65 white point: x=0.3127 y=0.3290
		{name: "white", color: colormodel.White, x: 20493, y: 21561, brightness: 65534},
		{name: "black", color: colormodel.RGB{}, x: 20493, y: 21561, brightness: 0},
		// sRGB red primary: x=0.64 y=0.33
		{name: "red", color: colormodel.RGB{R: 255}, x: 41943, y: 21627},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ColorXYB(tt.color)
			if diff(got.X, tt.x) > 80 || diff(got.Y, tt.y) > 80 {
				t.Errorf("got xy (%d, %d), want about (%d, %d)", got.X, got.Y, tt.x, tt.y)
			}
			if tt.brightness != 0 || tt.color == (colormodel.RGB{}) {
				if got.Brightness != tt.brightness {
					t.Errorf("got brightness %d, want %d", got.Brightness, tt.brightness)
				}
			}
		})
	}
}

func TestNewXYB_Brightness(t *testing.T) {
	got := NewXYB(colormodel.White, 50)
	if got.Brightness != 32768 {
		t.Errorf("expected 50%% of 65535 to round to 32768, got %d", got.Brightness)
	}
}

func diff(a, b uint16) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
