/*
network.go Typed model of a balanced distribution network: buses, the lines
connecting them, and the system base the per-unit quantities are taken on.
*/

package network

import (
	"encoding/json"
	"math"

	"github.com/google/uuid"
)

// BusType selects which quantities are held fixed at a bus during a solve.
type BusType string

const (
	// Slack buses hold voltage magnitude and angle and absorb the imbalance.
	Slack BusType = "slack"
	// PQ buses hold active and reactive injection.
	PQ BusType = "pq"
	// PV buses hold active injection and voltage magnitude.
	PV BusType = "pv"
)

// Bus is a node where voltage is defined and loads or generation attach.
type Bus struct {
	ID          int     `json:"ID"`
	Name        string  `json:"Name"`
	VnKV        float64 `json:"VnKV"`
	Type        BusType `json:"Type"`
	PLoadMW     float64 `json:"PLoadMW"`
	QLoadMVar   float64 `json:"QLoadMVar"`
	PGenMW      float64 `json:"PGenMW"`
	QGenMVar    float64 `json:"QGenMVar"`
	VmSetPU     float64 `json:"VmSetPU"`
	VaSetDegree float64 `json:"VaSetDegree"`
}

// Line is a series branch between two buses. A line that is not InService is
// an open switch: it is kept in the model and reported, but carries no flow.
type Line struct {
	ID        int     `json:"ID"`
	FromBus   int     `json:"FromBus"`
	ToBus     int     `json:"ToBus"`
	ROhm      float64 `json:"ROhm"`
	XOhm      float64 `json:"XOhm"`
	MaxIKA    float64 `json:"MaxIKA"`
	InService bool    `json:"InService"`
}

// Config is the serialised form of a Network.
type Config struct {
	Name  string  `json:"Name"`
	SnMVA float64 `json:"SnMVA"`
	FHz   float64 `json:"FHz"`
	Buses []Bus   `json:"Buses"`
	Lines []Line  `json:"Lines"`
}

// Network is an immutable, validated network model.
type Network struct {
	pid    uuid.UUID
	config Config
	index  map[int]int
}

// New decodes a JSON network description and validates it.
func New(jsonConfig []byte) (Network, error) {
	config := Config{}
	err := json.Unmarshal(jsonConfig, &config)
	if err != nil {
		return Network{}, err
	}
	return Build(config)
}

// Build validates config and returns a Network holding its own copy of it.
func Build(config Config) (Network, error) {
	PID, err := uuid.NewUUID()
	if err != nil {
		return Network{}, err
	}

	n := Network{
		pid:    PID,
		config: copyConfig(config),
	}
	n.index = indexBuses(n.config.Buses)

	if err := n.Validate(); err != nil {
		return Network{}, err
	}
	return n, nil
}

// PID is a getter for the network identifier.
func (n Network) PID() uuid.UUID {
	return n.pid
}

// Name is a getter for the network name.
func (n Network) Name() string {
	return n.config.Name
}

// SnMVA is the system base power.
func (n Network) SnMVA() float64 {
	return n.config.SnMVA
}

// FHz is the nominal system frequency.
func (n Network) FHz() float64 {
	return n.config.FHz
}

// Buses returns a copy of the buses in definition order.
func (n Network) Buses() []Bus {
	return append([]Bus(nil), n.config.Buses...)
}

// Lines returns a copy of the lines in definition order.
func (n Network) Lines() []Line {
	return append([]Line(nil), n.config.Lines...)
}

// Index returns the position of bus id in Buses().
func (n Network) Index(id int) (int, bool) {
	i, ok := n.index[id]
	return i, ok
}

// Graph returns the bus connectivity graph over the in-service lines.
func (n Network) Graph() Graph {
	// Validate rejects duplicate buses and unknown line ends before it asks
	// for the graph, so neither call can fail here.
	g := NewGraph()
	for _, b := range n.config.Buses {
		_ = g.AddNode(b.ID)
	}
	for _, l := range n.config.Lines {
		if !l.InService {
			continue
		}
		_ = g.AddEdge(l.FromBus, l.ToBus)
	}
	return g
}

// Slack returns the reference bus.
func (n Network) Slack() (Bus, error) {
	for _, b := range n.config.Buses {
		if b.Type == Slack {
			return b, nil
		}
	}
	return Bus{}, invalidf("no slack bus")
}

// Validate checks the structural invariants of the network: unique IDs, valid
// line endpoints, positive ratings and impedances, a single slack bus, and a
// topology connected by its in-service lines.
func (n Network) Validate() error {
	c := n.config
	if len(c.Buses) == 0 {
		return invalidf("network has no buses")
	}
	if !(c.SnMVA > 0) {
		return invalidf("base power %v MVA must be positive", c.SnMVA)
	}

	slacks := 0
	seen := make(map[int]bool, len(c.Buses))
	for _, b := range c.Buses {
		if seen[b.ID] {
			return invalidf("duplicate bus %d", b.ID)
		}
		seen[b.ID] = true

		if !(b.VnKV > 0) {
			return invalidf("bus %d nominal voltage %v kV must be positive", b.ID, b.VnKV)
		}
		switch b.Type {
		case Slack:
			slacks++
			if !(b.VmSetPU > 0) {
				return invalidf("slack bus %d voltage setpoint %v p.u. must be positive", b.ID, b.VmSetPU)
			}
		case PV:
			if !(b.VmSetPU > 0) {
				return invalidf("pv bus %d voltage setpoint %v p.u. must be positive", b.ID, b.VmSetPU)
			}
		case PQ:
		default:
			return invalidf("bus %d has unknown type %q", b.ID, b.Type)
		}
	}
	if slacks != 1 {
		return invalidf("expected exactly one slack bus, found %d", slacks)
	}

	lineSeen := make(map[int]bool, len(c.Lines))
	for _, l := range c.Lines {
		if lineSeen[l.ID] {
			return invalidf("duplicate line %d", l.ID)
		}
		lineSeen[l.ID] = true

		if !seen[l.FromBus] {
			return invalidf("line %d references unknown from bus %d", l.ID, l.FromBus)
		}
		if !seen[l.ToBus] {
			return invalidf("line %d references unknown to bus %d", l.ID, l.ToBus)
		}
		if l.FromBus == l.ToBus {
			return invalidf("line %d connects bus %d to itself", l.ID, l.FromBus)
		}
		if math.Hypot(l.ROhm, l.XOhm) == 0 {
			return invalidf("line %d has zero series impedance", l.ID)
		}
		if !(l.MaxIKA > 0) {
			return invalidf("line %d rating %v kA must be positive", l.ID, l.MaxIKA)
		}
		from, to := c.Buses[n.index[l.FromBus]], c.Buses[n.index[l.ToBus]]
		if from.VnKV != to.VnKV {
			return invalidf("line %d joins buses with different nominal voltage (%v kV, %v kV)",
				l.ID, from.VnKV, to.VnKV)
		}
	}

	islands := n.Graph().Islands()
	if len(islands) != 1 {
		return invalidf("network is disconnected into %d islands", len(islands))
	}
	return nil
}

func indexBuses(buses []Bus) map[int]int {
	index := make(map[int]int, len(buses))
	for i, b := range buses {
		index[b.ID] = i
	}
	return index
}

func copyConfig(c Config) Config {
	c.Buses = append([]Bus(nil), c.Buses...)
	c.Lines = append([]Line(nil), c.Lines...)
	return c
}
