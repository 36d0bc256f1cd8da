package session

import (
	"github.com/robotomize/kawase"
)

// State is what the controller publishes after every step
type State interface {
	state()
}

// Uninitialized is the state before the first event
type Uninitialized struct{}

// Loading is shown while a requested fetch is in flight
type Loading struct{}

// AutoRefreshing is shown while a periodic fetch is in flight. Info is the data on screen meanwhile
type AutoRefreshing struct {
	Info kawase.ExchangeRateInfo
}

// Ready carries the current table and selection. Message is set after a settlement, Notice when an
// input was rejected or no selection can be made
type Ready struct {
	Info    kawase.ExchangeRateInfo
	Message string
	Notice  error
}

// Offline means the source is unreachable. Info is nil when nothing was ever persisted
type Offline struct {
	Info *kawase.ExchangeRateInfo
}

// Failed is a fetch or merge that could not complete. The committed graph is unchanged
type Failed struct {
	Err error
}

func (Uninitialized) state()  {}
func (Loading) state()        {}
func (AutoRefreshing) state() {}
func (Ready) state()          {}
func (Offline) state()        {}
func (Failed) state()         {}
