package detector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script is a recorded or hand-written landmark sequence, one entry per
// frame. It is used to drive MockDetector in tests and replays.
// Expect lists the note names the sequence should play, in order.
type Script struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Expect      []string      `yaml:"expect"`
	Frames      []ScriptFrame `yaml:"frames"`
}

// ScriptFrame is one frame of a Script.
type ScriptFrame struct {
	Hands []ScriptHand `yaml:"hands"`
}

// ScriptHand places an open palm with its center at PalmY. Tips overrides
// the height of individual landmarks, keyed by landmark index.
type ScriptHand struct {
	PalmY float64         `yaml:"palm_y"`
	Tips  map[int]float64 `yaml:"tips"`
}

// LoadScript reads a YAML landmark script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load script: %w", err)
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	return &s, nil
}

// Hands expands the script into per-frame detector output.
func (s *Script) Hands() [][]HandLandmarks {
	out := make([][]HandLandmarks, len(s.Frames))
	for i, f := range s.Frames {
		hands := make([]HandLandmarks, 0, len(f.Hands))
		for _, h := range f.Hands {
			hand := HandAt(h.PalmY)
			for tip, y := range h.Tips {
				hand = WithTip(hand, tip, y)
			}
			hands = append(hands, hand)
		}
		out[i] = hands
	}
	return out
}
