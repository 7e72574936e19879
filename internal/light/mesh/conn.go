package mesh

//go:generate mockgen -source=conn.go -destination=mocks/conn_mock.go -package=mocks

import (
	"context"
	"sync"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
)

var (
	pairCharUUID    = ble.MustParse("00010203-0405-0607-0809-0a0b0c0d1914")
	commandCharUUID = ble.MustParse("00010203-0405-0607-0809-0a0b0c0d1912")
)

// Conn is the GATT link to a single bulb.
type Conn interface {
	// WritePair writes the login characteristic.
	WritePair(data []byte) error
	// ReadPair reads the login characteristic.
	ReadPair() ([]byte, error)
	// WriteCommand writes an encrypted command packet.
	WriteCommand(data []byte) error
	// Disconnected is closed when the link drops.
	Disconnected() <-chan struct{}
	Close() error
}

var (
	deviceOnce sync.Once
	deviceErr  error
)

// Dial connects to the bulb at address over Bluetooth LE and locates the
// mesh characteristics.
func Dial(ctx context.Context, address string) (Conn, error) {
	deviceOnce.Do(func() {
		var d ble.Device
		d, deviceErr = newDevice()
		if deviceErr == nil {
			ble.SetDefaultDevice(d)
		}
	})
	if deviceErr != nil {
		return nil, errors.Wrap(deviceErr, "opening bluetooth adapter")
	}

	client, err := ble.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", address)
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		client.CancelConnection()
		return nil, errors.Wrap(err, "discovering GATT profile")
	}

	pair := profile.FindCharacteristic(ble.NewCharacteristic(pairCharUUID))
	command := profile.FindCharacteristic(ble.NewCharacteristic(commandCharUUID))
	if pair == nil || command == nil {
		client.CancelConnection()
		return nil, errors.Errorf("%s does not expose the mesh characteristics", address)
	}

	return &bleConn{client: client, pair: pair, command: command}, nil
}

type bleConn struct {
	client  ble.Client
	pair    *ble.Characteristic
	command *ble.Characteristic
}

func (c *bleConn) WritePair(data []byte) error {
	return errors.Wrap(c.client.WriteCharacteristic(c.pair, data, false), "writing pair characteristic")
}

func (c *bleConn) ReadPair() ([]byte, error) {
	b, err := c.client.ReadCharacteristic(c.pair)
	if err != nil {
		return nil, errors.Wrap(err, "reading pair characteristic")
	}
	return b, nil
}

func (c *bleConn) WriteCommand(data []byte) error {
	return errors.Wrap(c.client.WriteCharacteristic(c.command, data, true), "writing command characteristic")
}

func (c *bleConn) Disconnected() <-chan struct{} {
	return c.client.Disconnected()
}

func (c *bleConn) Close() error {
	return errors.Wrap(c.client.CancelConnection(), "disconnecting")
}
