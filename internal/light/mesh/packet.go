package mesh

import (
	"crypto/aes"
	"encoding/binary"
	"net"

	"github.com/pkg/errors"
)

// Command opcodes understood by Awox mesh bulbs.
const (
	cmdWhiteTemperature = 0xf0
	cmdWhiteBrightness  = 0xf1
	cmdColorBrightness  = 0xf2
	cmdColor            = 0xe2
	cmdPower            = 0xd0
)

// Pair characteristic opcodes.
const (
	pairRequest  = 0x0c
	pairAccepted = 0x0d
	pairRejected = 0x0e
)

const blockSize = 16

// pad16 copies b into a zero padded 16 byte block.
func pad16(b []byte) []byte {
	out := make([]byte, blockSize)
	copy(out, b)
	return out
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

func xor(a, b []byte) []byte {
	out := make([]byte, min(len(a), len(b)))
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// encrypt runs one AES-128 block with both key and value byte-reversed, the
// byte order the bulb firmware uses.
func encrypt(key, value []byte) []byte {
	block, err := aes.NewCipher(reversed(pad16(key)))
	if err != nil {
		// pad16 always yields a valid AES-128 key.
		panic(err)
	}
	out := make([]byte, blockSize)
	block.Encrypt(out, reversed(pad16(value)))
	return reversed(out)
}

func meshKey(name, password string) []byte {
	return xor(pad16([]byte(name)), pad16([]byte(password)))
}

// pairPacket is the login request written to the pair characteristic.
func pairPacket(name, password string, sessionRandom []byte) []byte {
	enc := encrypt(sessionRandom, meshKey(name, password))
	packet := make([]byte, 0, 17)
	packet = append(packet, pairRequest)
	packet = append(packet, sessionRandom[:8]...)
	return append(packet, enc[:8]...)
}

// sessionKey derives the command key from the login exchange.
func sessionKey(name, password string, sessionRandom, responseRandom []byte) []byte {
	random := make([]byte, 0, 16)
	random = append(random, sessionRandom[:8]...)
	random = append(random, responseRandom[:8]...)
	return encrypt(meshKey(name, password), random)
}

func checksum(key, nonce, payload []byte) []byte {
	base := make([]byte, 0, blockSize)
	base = append(base, nonce...)
	base = append(base, byte(len(payload)))
	check := encrypt(key, base)
	for i := 0; i < len(payload); i += blockSize {
		chunk := pad16(payload[i:min(i+blockSize, len(payload))])
		check = encrypt(key, xor(check, chunk))
	}
	return check
}

// cryptPayload applies the counter mode stream; it both encrypts and
// decrypts.
func cryptPayload(key, nonce, payload []byte) []byte {
	base := pad16(append([]byte{0}, nonce...))
	out := make([]byte, 0, len(payload))
	for i := 0; i < len(payload); i += blockSize {
		stream := encrypt(key, base)
		out = append(out, xor(stream, payload[i:min(i+blockSize, len(payload))])...)
		base[0]++
	}
	return out
}

// macBytes parses a bulb address and returns it little-endian.
func macBytes(address string) ([]byte, error) {
	hw, err := net.ParseMAC(address)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing address %q", address)
	}
	if len(hw) != 6 {
		return nil, errors.Errorf("address %q is not a 48-bit MAC", address)
	}
	return reversed(hw), nil
}

func commandNonce(mac, seq []byte) []byte {
	nonce := make([]byte, 0, 8)
	nonce = append(nonce, mac[:4]...)
	nonce = append(nonce, 0x01)
	return append(nonce, seq[:3]...)
}

// commandPacket builds an encrypted 20 byte command: 3 sequence bytes, 2
// checksum bytes and the 15 byte payload.
func commandPacket(key, mac []byte, dest uint16, command byte, data, seq []byte) []byte {
	nonce := commandNonce(mac, seq)

	payload := make([]byte, 15)
	binary.LittleEndian.PutUint16(payload[0:2], dest)
	payload[2] = command
	payload[3] = 0x60
	payload[4] = 0x01
	copy(payload[5:], data)

	check := checksum(key, nonce, payload)
	packet := make([]byte, 0, 20)
	packet = append(packet, seq[:3]...)
	packet = append(packet, check[:2]...)
	return append(packet, cryptPayload(key, nonce, payload)...)
}
