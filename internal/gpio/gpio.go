// Package gpio drives the remote's button lines and watches its indicator lines.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"github.com/pkg/errors"

	"github.com/sweeney/vent-remote/internal/logic"
)

// Driver controls the button-emulation lines and the busy lamp.
type Driver interface {
	// Assert drives the button line low, emulating a closed contact.
	Assert(line logic.Line) error

	// Release puts the button line back into high impedance.
	// The line is never driven high.
	Release(line logic.Line) error

	// SetBusy switches the busy lamp. It is a no-op when no lamp is wired.
	SetBusy(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// EdgeHandler is called once per falling edge on an indicator line.
// It runs on the GPIO event goroutine, concurrently with Driver calls.
type EdgeHandler func(logic.Indicator)

// Pins maps the remote's lines to chip offsets (BCM numbering).
// Busy < 0 disables the busy lamp.
type Pins struct {
	Level1   int
	Level2   int
	Level3   int
	Auto     int
	Timer    int
	Absent   int
	Positive int
	Fault    int
	Busy     int
}

// DefaultPins is the wiring of the reference board.
var DefaultPins = Pins{
	Level1:   17,
	Level2:   27,
	Level3:   22,
	Auto:     23,
	Timer:    24,
	Absent:   25,
	Positive: 5,
	Fault:    6,
	Busy:     26,
}

// Button returns the offset wired to a button line.
func (p Pins) Button(line logic.Line) (int, bool) {
	switch line {
	case logic.LineLevel1:
		return p.Level1, true
	case logic.LineLevel2:
		return p.Level2, true
	case logic.LineLevel3:
		return p.Level3, true
	case logic.LineAuto:
		return p.Auto, true
	case logic.LineTimer:
		return p.Timer, true
	case logic.LineAbsent:
		return p.Absent, true
	}
	return 0, false
}

// Indicator returns which indicator is wired to offset.
func (p Pins) Indicator(offset int) (logic.Indicator, bool) {
	switch offset {
	case p.Positive:
		return logic.IndicatorPositive, true
	case p.Fault:
		return logic.IndicatorFault, true
	}
	return 0, false
}

// Validate rejects negative or shared offsets.
func (p Pins) Validate() error {
	used := make(map[int]string)
	claim := func(name string, offset int) error {
		if offset < 0 {
			return errors.Errorf("%s pin %d: negative offset", name, offset)
		}
		if other, ok := used[offset]; ok {
			return errors.Errorf("%s pin %d: already used by %s", name, offset, other)
		}
		used[offset] = name
		return nil
	}
	for _, line := range logic.Lines {
		offset, _ := p.Button(line)
		if err := claim(line.String(), offset); err != nil {
			return err
		}
	}
	if err := claim("positive", p.Positive); err != nil {
		return err
	}
	if err := claim("fault", p.Fault); err != nil {
		return err
	}
	if p.Busy >= 0 {
		if err := claim("busy", p.Busy); err != nil {
			return err
		}
	}
	return nil
}
