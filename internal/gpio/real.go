//go:build linux

package gpio

import (
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/vent-remote/internal/logic"
)

const consumer = "vent-remote"

// RealBoard drives the remote using the Linux GPIO character device.
type RealBoard struct {
	chip       *gpiocdev.Chip
	pins       Pins
	buttons    map[logic.Line]*gpiocdev.Line
	indicators []*gpiocdev.Line
	busy       *gpiocdev.Line
}

// NewRealBoard requests every line of the remote from the named chip.
// Button lines are open-drain outputs that start released; indicator lines are
// pulled-up inputs whose falling edges are reported to onEdge.
func NewRealBoard(chipName string, pins Pins, onEdge EdgeHandler) (*RealBoard, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}

	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, errors.Wrapf(err, "open gpio chip %s", chipName)
	}

	b := &RealBoard{
		chip:    chip,
		pins:    pins,
		buttons: make(map[logic.Line]*gpiocdev.Line),
	}

	for _, line := range logic.Lines {
		offset, _ := pins.Button(line)
		// Value 1 on an open-drain line is high impedance.
		l, err := chip.RequestLine(offset, gpiocdev.AsOutput(1), gpiocdev.AsOpenDrain)
		if err != nil {
			b.Close()
			return nil, errors.Wrapf(err, "request %s pin %d", line, offset)
		}
		b.buttons[line] = l
	}

	handler := func(evt gpiocdev.LineEvent) {
		if evt.Type != gpiocdev.LineEventFallingEdge {
			return
		}
		if ind, ok := pins.Indicator(evt.Offset); ok {
			onEdge(ind)
		}
	}
	for _, offset := range []int{pins.Positive, pins.Fault} {
		l, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithEventHandler(handler))
		if err != nil {
			b.Close()
			return nil, errors.Wrapf(err, "request indicator pin %d", offset)
		}
		b.indicators = append(b.indicators, l)
	}

	if pins.Busy >= 0 {
		l, err := chip.RequestLine(pins.Busy, gpiocdev.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, errors.Wrapf(err, "request busy pin %d", pins.Busy)
		}
		b.busy = l
	}

	return b, nil
}

// Assert drives the button line low.
func (b *RealBoard) Assert(line logic.Line) error {
	l, ok := b.buttons[line]
	if !ok {
		return errors.Errorf("no pin for line %s", line)
	}
	return errors.Wrapf(l.SetValue(0), "assert %s", line)
}

// Release lets the button line float.
func (b *RealBoard) Release(line logic.Line) error {
	l, ok := b.buttons[line]
	if !ok {
		return errors.Errorf("no pin for line %s", line)
	}
	return errors.Wrapf(l.SetValue(1), "release %s", line)
}

// SetBusy switches the busy lamp.
func (b *RealBoard) SetBusy(on bool) error {
	if b.busy == nil {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	return errors.Wrap(b.busy.SetValue(v), "set busy lamp")
}

// Close releases GPIO resources.
// Every line is reconfigured as an input before closing so nothing stays driven
// across a restart.
func (b *RealBoard) Close() error {
	var errs []error

	for _, line := range logic.Lines {
		l, ok := b.buttons[line]
		if !ok {
			continue
		}
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, errors.Wrapf(err, "reconfigure %s pin", line))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close %s pin", line))
		}
	}
	for _, l := range b.indicators {
		if err := l.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close indicator pin"))
		}
	}
	if b.busy != nil {
		if err := b.busy.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, errors.Wrap(err, "reconfigure busy pin"))
		}
		if err := b.busy.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close busy pin"))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close chip"))
		}
	}

	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}
