package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/salesboard/internal/adapters/repository"
	"github.com/okian/salesboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store", t, func() {
		s := repository.NewMemoryStore()

		Convey("Then unknown keys are not found", func() {
			_, err := s.Get(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then written values read back", func() {
			So(s.Set(ctx, "k", "v"), ShouldBeNil)
			v, err := s.Get(ctx, "k")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "v")
		})

		Convey("Then a closed store refuses access", func() {
			So(s.Close(), ShouldBeNil)
			_, err := s.Get(ctx, "k")
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			So(errors.Is(s.Set(ctx, "k", "v"), repository.ErrClosed), ShouldBeTrue)
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a SQLite store in a temp dir", t, func() {
		path := filepath.Join(t.TempDir(), "state.db")
		s, err := repository.NewSQLiteStore(ctx, path, repository.WithBusyTimeout(1000))
		So(err, ShouldBeNil)

		Convey("When a value is overwritten", func() {
			So(s.Set(ctx, "k", "first"), ShouldBeNil)
			So(s.Set(ctx, "k", "second"), ShouldBeNil)

			Convey("Then the latest value wins", func() {
				v, err := s.Get(ctx, "k")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "second")
				So(s.Close(), ShouldBeNil)
			})
		})

		Convey("When the store is reopened", func() {
			So(s.Set(ctx, repository.KeyLastTopSeller, "J"), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			reopened, err := repository.NewSQLiteStore(ctx, path)
			So(err, ShouldBeNil)
			defer reopened.Close()

			Convey("Then the value survived", func() {
				name, err := repository.NewLeaderStore(reopened).LastTopSeller(ctx)
				So(err, ShouldBeNil)
				So(name, ShouldEqual, "J")
			})
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			Convey("Then access fails with ErrClosed", func() {
				_, err := s.Get(ctx, "k")
				So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			})
		})
	})
}

func TestLeaderStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a leader store with nothing remembered", t, func() {
		l := repository.NewLeaderStore(repository.NewMemoryStore())

		Convey("Then the last top seller is empty without error", func() {
			name, err := l.LastTopSeller(ctx)
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "")
		})

		Convey("Then a set leader is returned", func() {
			So(l.SetLastTopSeller(ctx, "K"), ShouldBeNil)
			So(l.SetLastTopSeller(ctx, "J"), ShouldBeNil)
			name, _ := l.LastTopSeller(ctx)
			So(name, ShouldEqual, "J")
		})
	})
}
