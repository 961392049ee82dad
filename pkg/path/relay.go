package path

import (
	"sort"
)

// Relay is a message relay as read from the indexed policy fields.
type Relay struct {
	Index    int
	ID       string
	Address  string
	Port     int
	Priority int
}

// Preferrer orders message relays before they are turned into paths.
type Preferrer interface {
	Prefer(relays []Relay) []Relay
}

type PreferrerFunc func(relays []Relay) []Relay

func (f PreferrerFunc) Prefer(relays []Relay) []Relay {
	return f(relays)
}

type priorityPreferrer struct{}

// PriorityPreferrer orders relays by ascending priority.
// Relays of equal priority keep their configured order.
func PriorityPreferrer() Preferrer {
	return &priorityPreferrer{}
}

func (*priorityPreferrer) Prefer(relays []Relay) []Relay {
	rs := make([]Relay, len(relays))
	copy(rs, relays)
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Priority < rs[j].Priority
	})
	return rs
}

type configOrderPreferrer struct{}

// ConfigOrderPreferrer keeps relays in the order they are configured.
func ConfigOrderPreferrer() Preferrer {
	return &configOrderPreferrer{}
}

func (*configOrderPreferrer) Prefer(relays []Relay) []Relay {
	return relays
}
