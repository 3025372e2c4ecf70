package audio

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// ErrNoMIDIPort is returned when no output port matches.
var ErrNoMIDIPort = errors.New("no matching MIDI output port")

type rtmidiOut struct {
	out    drivers.Out
	driver *rtmididrv.Driver
}

func (o *rtmidiOut) Send(data []byte) error {
	return o.out.Send(data)
}

func (o *rtmidiOut) Close() error {
	err := o.out.Close()
	return errors.Join(err, o.driver.Close())
}

// OpenMIDIOut opens the first output port whose name starts with
// namePrefix. An empty prefix takes the first port.
func OpenMIDIOut(namePrefix string) (MIDIOut, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open midi driver: %w", err)
	}

	outs, err := driver.Outs()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("list midi outputs: %w", err)
	}

	for _, out := range outs {
		if !strings.HasPrefix(out.String(), namePrefix) {
			continue
		}
		if err := out.Open(); err != nil {
			driver.Close()
			return nil, fmt.Errorf("open midi output %q: %w", out.String(), err)
		}
		return &rtmidiOut{out: out, driver: driver}, nil
	}

	driver.Close()
	return nil, fmt.Errorf("%w: %q", ErrNoMIDIPort, namePrefix)
}
