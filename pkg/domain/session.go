package domain

import "time"

// WindowStatus is the lifecycle state of a teller window session.
type WindowStatus string

const (
	// WindowClosed is the zero state: no session, conversion actions
	// disabled.
	WindowClosed WindowStatus = "closed"
	// WindowOpen allows all conversion actions.
	WindowOpen WindowStatus = "open"
	// WindowPaused is a client-local lock: the server still considers the
	// window open, but conversion actions are disabled until resume.
	WindowPaused WindowStatus = "paused"
)

// Valid reports whether s is a known status tag. Unknown tags appear when a
// stored snapshot is corrupt or from an incompatible version.
func (s WindowStatus) Valid() bool {
	return s == WindowClosed || s == WindowOpen || s == WindowPaused
}

// WindowSession is the snapshot of a teller window session. It is owned by
// the session manager; everyone else receives value copies.
type WindowSession struct {
	WindowID          int64        `json:"window_id"`
	ExchangeHouseID   int64        `json:"exchange_house_id"`
	WindowName        string       `json:"window_name"`
	OperatorName      string       `json:"operator_name"`
	ExchangeHouseName string       `json:"exchange_house_name"`
	OpenedAt          time.Time    `json:"opened_at"`
	Status            WindowStatus `json:"status"`
}

// Active reports whether the session refers to a server-side open window,
// i.e. status open or paused.
func (s WindowSession) Active() bool {
	return s.Status == WindowOpen || s.Status == WindowPaused
}
