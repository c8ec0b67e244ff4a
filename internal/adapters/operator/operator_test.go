package operator_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/adapters/operator"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWatchQuit(t *testing.T) {
	Convey("Given a session context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("When the operator types the quit key", func() {
			operator.WatchQuit(ctx, strings.NewReader("hello\n q \n"), "q", cancel)

			Convey("Then the session is cancelled", func() {
				So(ctx.Err(), ShouldNotBeNil)
			})
		})

		Convey("When input ends without the quit key", func() {
			operator.WatchQuit(ctx, strings.NewReader("x\ny\n"), "q", cancel)

			Convey("Then the session keeps running", func() {
				So(ctx.Err(), ShouldBeNil)
			})
		})

		Convey("When the context ends while input is idle", func() {
			pr, pw := io.Pipe()
			defer func() { _ = pw.Close() }()
			done, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer stop()
			called := false
			operator.WatchQuit(done, pr, "q", func() { called = true })

			Convey("Then the watcher returns without cancelling", func() {
				So(done.Err(), ShouldNotBeNil)
				So(called, ShouldBeFalse)
			})
		})
	})
}
