package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	app "github.com/okian/salesboard/internal/app"
	"github.com/okian/salesboard/internal/config"
	"github.com/okian/salesboard/pkg/logger"
	"github.com/okian/salesboard/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRouter(t *testing.T) {
	convey.Convey("Given the presenter router", t, func() {
		cfg := config.New()
		cfg.StateDBPath = ""

		convey.Convey("When asset_dir is configured", func() {
			dir := t.TempDir()
			convey.So(os.MkdirAll(filepath.Join(dir, "photos"), 0o750), convey.ShouldBeNil)
			convey.So(os.WriteFile(filepath.Join(dir, "photos", "jane.png"), []byte("png"), 0o600), convey.ShouldBeNil)
			cfg.AssetDir = dir

			srv := httptest.NewServer(newRouter(cfg, app.New(cfg)))
			defer srv.Close()

			convey.Convey("Then assets are served under asset_base", func() {
				resp, err := http.Get(srv.URL + cfg.AssetBase + "/photos/jane.png")
				convey.So(err, convey.ShouldBeNil)
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(string(body), convey.ShouldEqual, "png")
			})
		})

		convey.Convey("When asset_dir is empty", func() {
			srv := httptest.NewServer(newRouter(cfg, app.New(cfg)))
			defer srv.Close()

			convey.Convey("Then asset paths are not found", func() {
				resp, err := http.Get(srv.URL + cfg.AssetBase + "/photos/jane.png")
				convey.So(err, convey.ShouldBeNil)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
			})

			convey.Convey("Then state is served before the service starts", func() {
				resp, err := http.Get(srv.URL + "/state")
				convey.So(err, convey.ShouldBeNil)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then the API docs are served", func() {
				resp, err := http.Get(srv.URL + "/openapi.yaml")
				convey.So(err, convey.ShouldBeNil)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestHTTPServer(t *testing.T) {
	convey.Convey("Given a configured HTTP server", t, func() {
		srv := newHTTPServer(":0", http.NotFoundHandler())

		convey.Convey("Then every timeout is set", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
			convey.So(srv.IdleTimeout, convey.ShouldEqual, idleTimeout)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("When it runs once", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)

			convey.Convey("Then process gauges are exported", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "salesboard_presenter_system_goroutines" {
						found = true
						convey.So(f.GetMetric()[0].GetGauge().GetValue(), convey.ShouldBeGreaterThan, 0)
					}
				}
				convey.So(found, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When it runs on the configured interval", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
				close(done)
			}()
			cancel()

			convey.Convey("Then it stops with its context", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("system metrics updater did not stop")
				}
			})
		})
	})
}
