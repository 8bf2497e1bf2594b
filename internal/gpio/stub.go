//go:build !linux

package gpio

import (
	"github.com/pkg/errors"

	"github.com/sweeney/vent-remote/internal/logic"
)

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(chipName string, pins Pins, onEdge EdgeHandler) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Assert is not implemented on non-Linux platforms.
func (b *RealBoard) Assert(line logic.Line) error {
	return errors.New("gpio: not supported")
}

// Release is not implemented on non-Linux platforms.
func (b *RealBoard) Release(line logic.Line) error {
	return errors.New("gpio: not supported")
}

// SetBusy is not implemented on non-Linux platforms.
func (b *RealBoard) SetBusy(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
