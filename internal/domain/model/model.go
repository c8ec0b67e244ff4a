// Package model contains domain models passed between layers.
package model

import (
	"time"

	"golang.org/x/text/unicode/norm"
)

// UnknownLabel is shown for faces that match no enrolled identity.
const UnknownLabel = "Unknown"

// Identity is the human-readable label of an enrolled person.
type Identity string

// NewIdentity returns the NFC form of label so that the same filename stem
// yields the same Identity regardless of the filesystem's normalization.
func NewIdentity(label string) Identity {
	return Identity(norm.NFC.String(label))
}

func (i Identity) String() string { return string(i) }

// Embedding is a fixed-length face descriptor. Treat as immutable.
type Embedding []float32

// Region is a face bounding box in pixel coordinates.
type Region struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Face is one detection returned by the embedding provider.
type Face struct {
	Region    Region
	Embedding Embedding
}

// RosterEntry pairs an enrolled identity with its reference embedding.
type RosterEntry struct {
	Identity  Identity
	Embedding Embedding
}

// MatchResult is the outcome of matching one probe against the roster.
type MatchResult struct {
	Identity Identity
	Distance float64
	Known    bool
}

// Unknown is the result for a probe with no eligible roster entry.
func Unknown() MatchResult { return MatchResult{} }

// Identified is the result for a probe whose nearest eligible entry is id.
func Identified(id Identity, distance float64) MatchResult {
	return MatchResult{Identity: id, Distance: distance, Known: true}
}

// Label returns the display text for the result.
func (r MatchResult) Label() string {
	if !r.Known {
		return UnknownLabel
	}
	return string(r.Identity)
}

// Record is one persisted attendance row.
type Record struct {
	Identity Identity  `json:"name"`
	Time     time.Time `json:"time"`
}

// Frame is one captured image handed from the frame source to the matcher.
type Frame struct {
	Seq        uint64
	Data       []byte
	CapturedAt time.Time
}

// Outcome reports what RecordIfFirst did.
type Outcome int

const (
	// Recorded means the identity was new this session and a row was written.
	Recorded Outcome = iota + 1
	// AlreadyRecorded means the identity was logged earlier this session.
	AlreadyRecorded
)

func (o Outcome) String() string {
	switch o {
	case Recorded:
		return "recorded"
	case AlreadyRecorded:
		return "already_recorded"
	default:
		return "unknown"
	}
}

// Label is a face region with the text to overlay on it.
type Label struct {
	Region Region `json:"region"`
	Text   string `json:"text"`
}
