package remote

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/vent-remote/internal/gpio"
	"github.com/sweeney/vent-remote/internal/logic"
)

// Emitter presses a button line a number of times.
type Emitter struct {
	driver gpio.Driver
	sleep  func(time.Duration)
	log    *log.Entry
}

// NewEmitter creates an emitter that waits with sleep between level changes.
func NewEmitter(driver gpio.Driver, sleep func(time.Duration), logger *log.Entry) *Emitter {
	return &Emitter{driver: driver, sleep: sleep, log: logger}
}

// Emit presses line the given number of times: low for PressDuration, then
// released for ReleaseDuration. The line is released on every return path.
func (e *Emitter) Emit(line logic.Line, presses uint) error {
	for i := uint(1); i <= presses; i++ {
		e.log.Debugf("press %d/%d on %s", i, presses, line)

		if err := e.driver.Assert(line); err != nil {
			if rerr := e.driver.Release(line); rerr != nil {
				e.log.WithError(rerr).Warnf("release %s after failed press", line)
			}
			return errors.Wrapf(err, "press %d/%d", i, presses)
		}
		e.sleep(logic.PressDuration)

		if err := e.driver.Release(line); err != nil {
			return errors.Wrapf(err, "press %d/%d", i, presses)
		}
		e.sleep(logic.ReleaseDuration)
	}
	return nil
}
