package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/rollcall/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithCapacityHint(4))

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
			So(d.Seen(ctx, "alice"), ShouldBeFalse)
		})

		Convey("When an identity is recorded", func() {
			first := d.SeenAndRecord(ctx, "alice")

			Convey("Then it is new the first time and seen afterwards", func() {
				So(first, ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "alice"), ShouldBeTrue)
				So(d.Seen(ctx, "alice"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And then unrecorded", func() {
				d.Unrecord(ctx, "alice")

				Convey("Then it can be recorded again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(ctx, "alice"), ShouldBeFalse)
				})
			})
		})

		Convey("When unrecording an identity that was never seen", func() {
			d.Unrecord(ctx, "nobody")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When more identities than the capacity hint are recorded", func() {
			for i := range 100 {
				d.SeenAndRecord(ctx, fmt.Sprintf("person-%d", i))
			}

			Convey("Then none are evicted", func() {
				So(d.Size(), ShouldEqual, 100)
				So(d.Seen(ctx, "person-0"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "person-0"), ShouldBeTrue)
			})
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines racing on the same identity", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var winners atomic.Int64
		var wg sync.WaitGroup

		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "bob") {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one records it", func() {
			So(winners.Load(), ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
