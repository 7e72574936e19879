package mesh

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestEncrypt_ReversedAES(t *testing.T) {
	// FIPS-197 appendix C.1, fed through the reversed byte order.
	key := reversed(mustHex(t, "000102030405060708090a0b0c0d0e0f"))
	plain := reversed(mustHex(t, "00112233445566778899aabbccddeeff"))
	want := reversed(mustHex(t, "69c4e0d86a7b0430d8cdb78070b4c55a"))

	assert.Equal(t, want, encrypt(key, plain))
}

func TestPad16(t *testing.T) {
	assert.Equal(t, append([]byte("abc"), make([]byte, 13)...), pad16([]byte("abc")))
	assert.Len(t, pad16(nil), 16)
}

func TestMeshKey(t *testing.T) {
	key := meshKey("unpaired", "1234")
	require.Len(t, key, 16)
	assert.Equal(t, byte('u'^'1'), key[0])
	assert.Equal(t, byte('r'), key[5])
	assert.Equal(t, byte(0), key[8])
}

func TestPairPacket(t *testing.T) {
	random := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	packet := pairPacket("unpaired", "1234", random)

	require.Len(t, packet, 17)
	assert.Equal(t, byte(pairRequest), packet[0])
	assert.Equal(t, random, packet[1:9])
	assert.Equal(t, encrypt(random, meshKey("unpaired", "1234"))[:8], packet[9:])
}

func TestSessionKey_DependsOnBothRandoms(t *testing.T) {
	a := sessionKey("unpaired", "1234", []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{8, 7, 6, 5, 4, 3, 2, 1})
	b := sessionKey("unpaired", "1234", []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{8, 7, 6, 5, 4, 3, 2, 0})

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestMacBytes(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    []byte
		wantErr bool
	}{
		{name: "colon separated", address: "A4:C1:38:01:02:03", want: []byte{0x03, 0x02, 0x01, 0x38, 0xc1, 0xa4}},
		{name: "dash separated", address: "a4-c1-38-01-02-03", want: []byte{0x03, 0x02, 0x01, 0x38, 0xc1, 0xa4}},
		{name: "garbage", address: "not-a-mac", wantErr: true},
		{name: "64 bit", address: "00:00:00:00:fe:80:00:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := macBytes(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandPacket_RoundTrip(t *testing.T) {
	key := sessionKey("unpaired", "1234", []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{9, 10, 11, 12, 13, 14, 15, 16})
	mac := []byte{0x03, 0x02, 0x01, 0x38, 0xc1, 0xa4}
	seq := []byte{0x11, 0x22, 0x33}

	packet := commandPacket(key, mac, 0x0102, cmdColor, []byte{0x04, 0xff, 0x80, 0x00}, seq)
	require.Len(t, packet, 20)
	assert.Equal(t, seq, packet[:3])

	nonce := commandNonce(mac, seq)
	payload := cryptPayload(key, nonce, packet[5:])
	require.Len(t, payload, 15)

	assert.Equal(t, []byte{0x02, 0x01}, payload[0:2], "destination is little-endian")
	assert.Equal(t, byte(cmdColor), payload[2])
	assert.Equal(t, []byte{0x60, 0x01}, payload[3:5])
	assert.Equal(t, []byte{0x04, 0xff, 0x80, 0x00}, payload[5:9])
	assert.True(t, bytes.Equal(make([]byte, 6), payload[9:]))

	assert.Equal(t, checksum(key, nonce, payload)[:2], packet[3:5])
}

func TestCommandNonce(t *testing.T) {
	nonce := commandNonce([]byte{0x03, 0x02, 0x01, 0x38, 0xc1, 0xa4}, []byte{0xaa, 0xbb, 0xcc})
	assert.Equal(t, []byte{0x03, 0x02, 0x01, 0x38, 0x01, 0xaa, 0xbb, 0xcc}, nonce)
}
