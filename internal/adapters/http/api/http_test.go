package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/adapters/http/api"
	"github.com/okian/rollcall/internal/adapters/render"
	"github.com/okian/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeps struct {
	records []model.Record
	roster  []model.Identity
	overlay render.Overlay
}

func (m *mockDeps) Stats() map[string]any {
	return map[string]any{"session_id": "abc", "records": len(m.records)}
}

func (m *mockDeps) Attendance(context.Context) []model.Record { return m.records }
func (m *mockDeps) Roster(context.Context) []model.Identity   { return m.roster }
func (m *mockDeps) Overlay(context.Context) render.Overlay    { return m.overlay }

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer(t *testing.T) {
	Convey("Given a status API over a session with two sightings", t, func() {
		ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
		deps := &mockDeps{
			records: []model.Record{{Identity: "alice", Time: ts}, {Identity: "bob", Time: ts.Add(time.Minute)}},
			roster:  []model.Identity{"alice", "bob", "carol"},
			overlay: render.Overlay{Frame: 12, Labels: []model.Label{{Text: "alice"}}},
		}
		h := api.NewServer(deps).Handler()

		Convey("When GET /attendance is requested", func() {
			rec := get(h, "/attendance")
			var body struct {
				Count   int `json:"count"`
				Records []struct {
					Name string    `json:"name"`
					Time time.Time `json:"time"`
				} `json:"records"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then records are returned in first-seen order", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body.Count, ShouldEqual, 2)
				So(body.Records[0].Name, ShouldEqual, "alice")
				So(body.Records[1].Name, ShouldEqual, "bob")
				So(body.Records[0].Time.Equal(ts), ShouldBeTrue)
			})
		})

		Convey("When GET /roster is requested", func() {
			rec := get(h, "/roster")

			Convey("Then every enrolled identity is listed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"count":3`)
				So(rec.Body.String(), ShouldContainSubstring, `"carol"`)
			})
		})

		Convey("When GET /overlay is requested", func() {
			rec := get(h, "/overlay")

			Convey("Then the latest labels are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"frame":12`)
				So(rec.Body.String(), ShouldContainSubstring, `"text":"alice"`)
			})
		})

		Convey("When GET /stats is requested", func() {
			rec := get(h, "/stats")

			Convey("Then session stats are returned as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				So(rec.Body.String(), ShouldContainSubstring, `"session_id":"abc"`)
			})
		})

		Convey("When GET /healthz is requested after other requests", func() {
			_ = get(h, "/stats")
			rec := get(h, "/healthz")

			Convey("Then Prometheus metrics are exposed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "rollcall_attendance_http_requests_total")
			})
		})

		Convey("When an unknown path is requested", func() {
			rec := get(h, "/events")

			Convey("Then a JSON 404 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				So(rec.Body.String(), ShouldContainSubstring, `"code":"not_found"`)
			})
		})

		Convey("When a write method is used", func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/attendance", nil))

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}
