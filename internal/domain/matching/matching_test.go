package matching_test

import (
	"testing"

	"github.com/okian/rollcall/internal/domain/matching"
	"github.com/okian/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func entry(id string, v ...float32) model.RosterEntry {
	return model.RosterEntry{Identity: model.Identity(id), Embedding: v}
}

func TestMatcherDefaults(t *testing.T) {
	Convey("Given a default matcher", t, func() {
		m := matching.NewMatcher()

		Convey("Then the threshold is 0.6", func() {
			So(m.Threshold(), ShouldEqual, matching.DefaultThreshold)
		})

		Convey("When a non-positive threshold is supplied", func() {
			m = matching.NewMatcher(matching.WithThreshold(-1))

			Convey("Then the default is kept", func() {
				So(m.Threshold(), ShouldEqual, matching.DefaultThreshold)
			})
		})
	})
}

func TestMatchThresholdBoundary(t *testing.T) {
	Convey("Given a roster with one entry and threshold 0.5", t, func() {
		m := matching.NewMatcher(matching.WithThreshold(0.5))
		roster := []model.RosterEntry{entry("alice", 0, 0, 0)}

		Convey("When the probe is exactly at the threshold", func() {
			r := m.Match(model.Embedding{0.5, 0, 0}, roster)

			Convey("Then it is not a match", func() {
				So(r.Known, ShouldBeFalse)
				So(r.Label(), ShouldEqual, model.UnknownLabel)
			})
		})

		Convey("When the probe is strictly inside the threshold", func() {
			r := m.Match(model.Embedding{0.25, 0, 0}, roster)

			Convey("Then it matches", func() {
				So(r.Known, ShouldBeTrue)
				So(r.Identity, ShouldEqual, model.Identity("alice"))
				So(r.Distance, ShouldEqual, 0.25)
			})
		})
	})
}

func TestMatchThresholdBoundaryFloat32(t *testing.T) {
	Convey("Given the default threshold and an entry at the origin", t, func() {
		m := matching.NewMatcher()
		roster := []model.RosterEntry{entry("alice", 0, 0)}

		Convey("When a float32 probe lies just past 0.6 in exact arithmetic", func() {
			first := m.Match(model.Embedding{0.36, 0.48}, roster)
			swapped := m.Match(model.Embedding{0.48, 0.36}, roster)

			Convey("Then it is rejected whatever the coordinate order", func() {
				So(first.Known, ShouldBeFalse)
				So(swapped.Known, ShouldBeFalse)
			})
		})

		Convey("When a probe lies clearly inside the threshold", func() {
			r := m.Match(model.Embedding{0.35, 0.48}, roster)

			Convey("Then it still matches", func() {
				So(r.Known, ShouldBeTrue)
				So(r.Distance, ShouldBeLessThan, 0.6)
			})
		})
	})
}

func TestMatchGlobalMinimum(t *testing.T) {
	Convey("Given A at distance 0.5 listed before B at distance 0.3", t, func() {
		m := matching.NewMatcher()
		roster := []model.RosterEntry{
			entry("A", 0.5, 0),
			entry("B", 0, 0.3),
		}

		Convey("When the probe at the origin is matched", func() {
			r := m.Match(model.Embedding{0, 0}, roster)

			Convey("Then the nearest eligible entry wins", func() {
				So(r.Identity, ShouldEqual, model.Identity("B"))
				So(r.Distance, ShouldAlmostEqual, 0.3, 1e-6)
			})
		})

		Convey("When distances are measured directly", func() {
			dA, okA := matching.Distance(model.Embedding{0, 0}, roster[0].Embedding)
			dB, okB := matching.Distance(model.Embedding{0, 0}, roster[1].Embedding)

			Convey("Then they agree with the match", func() {
				So(okA && okB, ShouldBeTrue)
				So(dA, ShouldEqual, 0.5)
				So(dB, ShouldAlmostEqual, 0.3, 1e-6)
			})
		})
	})
}

func TestMatchTieBreak(t *testing.T) {
	Convey("Given two entries equidistant from the probe", t, func() {
		m := matching.NewMatcher()
		roster := []model.RosterEntry{
			entry("first", 0.2, 0),
			entry("second", 0, 0.2),
		}

		Convey("When the probe is matched repeatedly", func() {
			Convey("Then the earlier roster entry always wins", func() {
				for range 20 {
					So(m.Match(model.Embedding{0, 0}, roster).Identity, ShouldEqual, model.Identity("first"))
				}
			})
		})

		Convey("When the roster order is reversed", func() {
			reversed := []model.RosterEntry{roster[1], roster[0]}

			Convey("Then the other entry wins", func() {
				So(m.Match(model.Embedding{0, 0}, reversed).Identity, ShouldEqual, model.Identity("second"))
			})
		})
	})
}

func TestMatchDegenerateInputs(t *testing.T) {
	Convey("Given a default matcher", t, func() {
		m := matching.NewMatcher()

		Convey("When the roster is empty", func() {
			r := m.Match(model.Embedding{0.1, 0.2}, nil)

			Convey("Then every probe is unknown", func() {
				So(r.Known, ShouldBeFalse)
			})
		})

		Convey("When an entry has a different dimensionality", func() {
			roster := []model.RosterEntry{entry("short", 0), entry("ok", 0.1, 0)}
			r := m.Match(model.Embedding{0, 0}, roster)

			Convey("Then it is never a candidate", func() {
				So(r.Identity, ShouldEqual, model.Identity("ok"))
				_, ok := matching.Distance(model.Embedding{0, 0}, roster[0].Embedding)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the probe is empty", func() {
			r := m.Match(model.Embedding{}, []model.RosterEntry{entry("empty")})

			Convey("Then it is unknown", func() {
				So(r.Known, ShouldBeFalse)
			})
		})
	})
}
