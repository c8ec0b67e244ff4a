package repository

import "time"

// Default ledger file layout.
const (
	DefaultTimeLayout = "2006-01-02 15:04:05"
	HeaderName        = "Name"
	HeaderTime        = "Time"
)

// Option applies a configuration option to the CSVStore.
type Option func(*CSVStore)

// WithTimeLayout sets the layout timestamps are written and parsed with.
func WithTimeLayout(layout string) Option {
	return func(s *CSVStore) {
		if layout != "" {
			s.layout = layout
		}
	}
}

// WithLocation sets the zone timestamps are rendered in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *CSVStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}
