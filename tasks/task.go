package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/engine"
	"github.com/reusee/trials/interps"
	"github.com/reusee/trials/recorders"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/timings"
	"github.com/reusee/trials/trees"
)

type Task struct {
	Name        string
	Version     string
	Description string
	Config      Config
	Blocks      []Block
	// Dir resolves relative sources in trees.
	Dir string
}

type Block struct {
	Name     string
	Config   Config
	Signals  map[string]signals.ID
	External []signals.ID
	// Carry lists ids whose values are taken over from earlier blocks.
	Carry []signals.ID
	Tree  any
}

type Config struct {
	UseTrigger      bool
	BlocksPerRow    int
	BaseVolume      float64
	LogFormat       recorders.Format
	TimePrecision   timings.Policy
	Background      string
	Interpreter     string
	TickRate        float64
	StrictSignals   bool
	OnResourceError engine.ResourcePolicy
}

func DefaultConfig() Config {
	return Config{
		UseTrigger:      true,
		BlocksPerRow:    3,
		BaseVolume:      1,
		LogFormat:       recorders.FormatJSON,
		TimePrecision:   timings.RespectBoundaries,
		Background:      "#000000",
		Interpreter:     interps.DefaultName,
		TickRate:        timings.DefaultRate,
		OnResourceError: engine.ResourceDone,
	}
}

// rawConfig is a partial config. Absent fields keep the value being filled.
type rawConfig struct {
	UseTrigger      *bool    `json:"use_trigger"`
	BlocksPerRow    *int     `json:"blocks_per_row"`
	BaseVolume      *float64 `json:"base_volume"`
	LogFormat       *string  `json:"log_format"`
	TimePrecision   *string  `json:"time_precision"`
	Background      *string  `json:"background"`
	Interpreter     *string  `json:"interpreter"`
	TickRate        *float64 `json:"tick_rate"`
	StrictSignals   *bool    `json:"strict_signals"`
	OnResourceError *string  `json:"on_resource_error"`
}

// Fill returns c with the fields present in data set.
func (c Config) Fill(data json.RawMessage) (Config, error) {
	if len(data) == 0 || string(data) == "null" {
		return c, nil
	}
	var raw rawConfig
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	var err error
	if raw.UseTrigger != nil {
		c.UseTrigger = *raw.UseTrigger
	}
	if raw.BlocksPerRow != nil {
		if *raw.BlocksPerRow <= 0 {
			return c, fmt.Errorf("config: bad blocks_per_row %d", *raw.BlocksPerRow)
		}
		c.BlocksPerRow = *raw.BlocksPerRow
	}
	if raw.BaseVolume != nil {
		if *raw.BaseVolume < 0 {
			return c, fmt.Errorf("config: negative base_volume %v", *raw.BaseVolume)
		}
		c.BaseVolume = *raw.BaseVolume
	}
	if raw.LogFormat != nil {
		if c.LogFormat, err = recorders.ParseFormat(*raw.LogFormat); err != nil {
			return c, fmt.Errorf("config: %w", err)
		}
	}
	if raw.TimePrecision != nil {
		if c.TimePrecision, err = timings.ParsePolicy(*raw.TimePrecision); err != nil {
			return c, fmt.Errorf("config: %w", err)
		}
	}
	if raw.Background != nil {
		c.Background = *raw.Background
	}
	if raw.Interpreter != nil {
		c.Interpreter = *raw.Interpreter
	}
	if raw.TickRate != nil {
		if *raw.TickRate <= 0 {
			return c, fmt.Errorf("config: bad tick_rate %v", *raw.TickRate)
		}
		c.TickRate = *raw.TickRate
	}
	if raw.StrictSignals != nil {
		c.StrictSignals = *raw.StrictSignals
	}
	if raw.OnResourceError != nil {
		if c.OnResourceError, err = engine.ParseResourcePolicy(*raw.OnResourceError); err != nil {
			return c, fmt.Errorf("config: %w", err)
		}
	}
	return c, nil
}

var blockNamePattern = regexp.MustCompile(`^[A-Za-z0-9+\-_ ]+$`)

func (t *Task) validate() error {
	if t.Name == "" {
		return actions.Definitionf("task has no name")
	}
	if len(t.Blocks) == 0 {
		return actions.Definitionf("task %s has no blocks", t.Name)
	}
	seen := make(map[string]bool)
	for _, block := range t.Blocks {
		if !blockNamePattern.MatchString(block.Name) {
			return actions.Definitionf("bad block name %q", block.Name)
		}
		if seen[block.Name] {
			return actions.Definitionf("duplicate block name %q", block.Name)
		}
		seen[block.Name] = true
	}
	return nil
}

// Build constructs the tree of a block.
func (t *Task) Build(block *Block) (*trees.Tree, error) {
	tree, err := trees.Build(block.Tree, trees.Options{
		Signals:  block.Signals,
		External: block.External,
		Dir:      t.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", block.Name, err)
	}
	return tree, nil
}

// Check builds every block and reports all failures.
func (t *Task) Check() error {
	var errs []error
	for i := range t.Blocks {
		if _, err := t.Build(&t.Blocks[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Task) Block(name string) (*Block, bool) {
	for i := range t.Blocks {
		if t.Blocks[i].Name == name {
			return &t.Blocks[i], true
		}
	}
	return nil, false
}
