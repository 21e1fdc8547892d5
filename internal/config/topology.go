package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"transitsim/internal/engine"
)

// Network declares one simulated agency in the topology file.
type Network struct {
	Name             string              `yaml:"name" validate:"required"`
	UseExtendedDay   bool                `yaml:"useExtendedDay"`
	EnableCollision  bool                `yaml:"enableCollision"`
	TerminalDwellSec int                 `yaml:"terminalDwellSeconds" validate:"gte=0"`
	SharedSegments   map[string][]string `yaml:"sharedSegments"`
}

// Topology is the network topology file: which agencies to simulate and
// their engine parameters, including the shared-track-segment tables for
// collision detection. Keeping these in data rather than code lets the
// engines be tested against synthetic topologies.
type Topology struct {
	Networks []Network `yaml:"networks" validate:"required,min=1,dive"`
}

// LoadTopology reads and validates the YAML topology file. When the file
// does not exist the built-in five-network default is returned.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTopology(), nil
		}
		return nil, fmt.Errorf("read topology: %w", err)
	}
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	v := validator.New()
	if err := v.Struct(topo); err != nil {
		return nil, fmt.Errorf("validate topology: %w", err)
	}
	return &topo, nil
}

// DefaultTopology mirrors the built-in engine presets: commuter rail with
// collision separation, high-speed rail, and three metro/light-rail
// variants.
func DefaultTopology() *Topology {
	presets := []engine.Options{
		engine.CommuterRail(nil),
		engine.HighSpeed(),
		engine.Metro(),
		engine.LightRail(),
		engine.Suburban(),
	}
	topo := &Topology{Networks: make([]Network, 0, len(presets))}
	for _, p := range presets {
		topo.Networks = append(topo.Networks, Network{
			Name:             p.Agency,
			UseExtendedDay:   p.UseExtendedDay,
			EnableCollision:  p.EnableCollision,
			TerminalDwellSec: p.TerminalDwellSec,
			SharedSegments:   p.SharedSegments,
		})
	}
	return topo
}

// Options converts a network declaration into engine options.
func (n Network) Options() engine.Options {
	return engine.Options{
		Agency:           n.Name,
		UseExtendedDay:   n.UseExtendedDay,
		EnableCollision:  n.EnableCollision,
		TerminalDwellSec: n.TerminalDwellSec,
		SharedSegments:   n.SharedSegments,
	}
}
