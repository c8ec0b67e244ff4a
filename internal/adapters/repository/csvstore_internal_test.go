package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/rollcall/internal/domain/model"
)

// flakySyncFile fails Sync while failSync is set.
type flakySyncFile struct {
	*os.File
	failSync bool
}

func (f *flakySyncFile) Sync() error {
	if f.failSync {
		return errors.New("disk full")
	}
	return f.File.Sync()
}

func TestCSVStoreSyncFailure(t *testing.T) {
	convey.Convey("Given a ledger whose file fails to sync once", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "attendance.csv")
		s, err := OpenCSVStore(path, WithLocation(time.UTC))
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = s.Close() }()

		flaky := &flakySyncFile{File: s.file.(*os.File), failSync: true}
		s.file = flaky
		headerSize := s.size
		ts := time.Date(2024, 3, 5, 9, 7, 1, 0, time.UTC)

		convey.Convey("When a row is appended and the sync fails", func() {
			err := s.Append(ctx, model.Record{Identity: "alice", Time: ts})

			convey.Convey("Then the row is removed and the size is unchanged", func() {
				convey.So(errors.Is(err, ErrWriteRecord), convey.ShouldBeTrue)
				convey.So(s.size, convey.ShouldEqual, headerSize)
				info, statErr := os.Stat(path)
				convey.So(statErr, convey.ShouldBeNil)
				convey.So(info.Size(), convey.ShouldEqual, headerSize)
			})

			convey.Convey("Then a retry after recovery writes exactly one row", func() {
				flaky.failSync = false
				convey.So(s.Append(ctx, model.Record{Identity: "alice", Time: ts}), convey.ShouldBeNil)
				data, readErr := os.ReadFile(path)
				convey.So(readErr, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldEqual, "Name,Time\nalice,2024-03-05 09:07:01\n")
			})
		})
	})
}
