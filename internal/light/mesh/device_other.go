//go:build !linux

package mesh

import (
	"github.com/go-ble/ble"
	"github.com/pkg/errors"
)

func newDevice() (ble.Device, error) {
	return nil, errors.New("mesh lights need the Linux HCI bluetooth stack")
}
