package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kaanreal/companella-sub001/internal/adapters/http/api"
	"github.com/kaanreal/companella-sub001/internal/adapters/repository"
	"github.com/kaanreal/companella-sub001/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDeps implements api.Dependencies with canned data and call tracking.
type fakeDeps struct {
	seen       map[string]bool
	unrecorded []string
	enqueued   []model.Job
	rejectJobs bool
	reports    map[string]*model.Report
	entries    []api.Entry
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{
		seen:    make(map[string]bool),
		reports: make(map[string]*model.Report),
	}
}

func (f *fakeDeps) SeenAndRecord(_ context.Context, id string) bool {
	if f.seen[id] {
		return true
	}
	f.seen[id] = true
	return false
}

func (f *fakeDeps) Unrecord(_ context.Context, id string) {
	delete(f.seen, id)
	f.unrecorded = append(f.unrecorded, id)
}

func (f *fakeDeps) Size() int64 { return int64(len(f.seen)) }

func (f *fakeDeps) Enqueue(_ context.Context, j model.Job) bool {
	if f.rejectJobs {
		return false
	}
	f.enqueued = append(f.enqueued, j)
	return true
}

func (f *fakeDeps) DefaultOD() float64 { return 8 }

func (f *fakeDeps) GetReport(_ context.Context, analysisID string) (*model.Report, error) {
	rep, ok := f.reports[analysisID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rep, nil
}

func (f *fakeDeps) TopN(_ context.Context, n int) ([]api.Entry, error) {
	if n > len(f.entries) {
		n = len(f.entries)
	}
	return f.entries[:n], nil
}

func (f *fakeDeps) Rank(_ context.Context, player string) (api.Entry, error) {
	for _, e := range f.entries {
		if e.Player == player {
			return e, nil
		}
	}
	return api.Entry{}, repository.ErrNotFound
}

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"queueLength": 0, "totalPlayers": len(f.entries)}
}

func newTestMux(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, 100).Register(context.Background(), mux)
	return mux
}

func postJSON(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func get(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

const validBody = `{
	"analysis_id": "a-1",
	"player": "alice",
	"od": 8,
	"notes": [{"time": 1000, "lane": 0}],
	"events": [{"time": 1005, "lane": 0, "is_press": true}]
}`

func TestPostAnalysis(t *testing.T) {
	Convey("Given the analyses endpoint", t, func() {
		deps := newFakeDeps()
		mux := newTestMux(deps)

		Convey("When a valid submission is posted", func() {
			rec := postJSON(mux, "/analyses", validBody)

			Convey("Then it is accepted and enqueued", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)

				var ack struct {
					Status     string `json:"status"`
					Duplicate  bool   `json:"duplicate"`
					AnalysisID string `json:"analysis_id"`
				}
				So(json.NewDecoder(rec.Body).Decode(&ack), ShouldBeNil)
				So(ack.Status, ShouldEqual, "accepted")
				So(ack.Duplicate, ShouldBeFalse)
				So(ack.AnalysisID, ShouldEqual, "a-1")

				So(deps.enqueued, ShouldHaveLength, 1)
				So(deps.enqueued[0].Player, ShouldEqual, "alice")
			})
		})

		Convey("When the same analysis id is posted twice", func() {
			So(postJSON(mux, "/analyses", validBody).Code, ShouldEqual, http.StatusAccepted)
			rec := postJSON(mux, "/analyses", validBody)

			Convey("Then the second request is a duplicate ack, not a new job", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(deps.enqueued, ShouldHaveLength, 1)
			})
		})

		Convey("When the analysis id is omitted", func() {
			rec := postJSON(mux, "/analyses", `{
				"player": "alice",
				"notes": [{"time": 1000, "lane": 0}]
			}`)

			Convey("Then the server assigns one", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)

				var ack struct {
					AnalysisID string `json:"analysis_id"`
				}
				So(json.NewDecoder(rec.Body).Decode(&ack), ShouldBeNil)
				So(ack.AnalysisID, ShouldNotBeEmpty)
			})
		})

		Convey("When the od field is omitted", func() {
			rec := postJSON(mux, "/analyses", `{
				"player": "alice",
				"notes": [{"time": 1000, "lane": 0}]
			}`)

			Convey("Then the configured default is applied", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.enqueued[0].OD, ShouldEqual, 8)
			})
		})

		Convey("When the body is malformed", func() {
			rec := postJSON(mux, "/analyses", `{not json`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When required fields are missing", func() {
			rec := postJSON(mux, "/analyses", `{"player": "", "notes": []}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When od is out of range", func() {
			rec := postJSON(mux, "/analyses", `{
				"player": "alice",
				"od": 11,
				"notes": [{"time": 1000, "lane": 0}]
			}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the queue rejects the job", func() {
			deps.rejectJobs = true
			rec := postJSON(mux, "/analyses", validBody)

			Convey("Then the client gets backpressure and the id is released for retry", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(deps.unrecorded, ShouldContain, "a-1")
				So(deps.seen["a-1"], ShouldBeFalse)
			})
		})

		Convey("When the method is not POST", func() {
			rec := get(mux, "/analyses")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetAnalysis(t *testing.T) {
	Convey("Given an archived report", t, func() {
		deps := newFakeDeps()
		deps.reports["a-1"] = &model.Report{Accuracy: 0.97, MatchedCount: 100}
		mux := newTestMux(deps)

		Convey("When the report is fetched by id", func() {
			rec := get(mux, "/analyses/a-1")

			Convey("Then it comes back as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var rep model.Report
				So(json.NewDecoder(rec.Body).Decode(&rep), ShouldBeNil)
				So(rep.Accuracy, ShouldEqual, 0.97)
			})
		})

		Convey("When an unknown id is fetched", func() {
			rec := get(mux, "/analyses/missing")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the path has extra segments", func() {
			rec := get(mux, "/analyses/a-1/extra")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetScoreboard(t *testing.T) {
	Convey("Given a populated scoreboard", t, func() {
		deps := newFakeDeps()
		deps.entries = []api.Entry{
			{Rank: 1, Player: "bob", Accuracy: 0.97},
			{Rank: 2, Player: "alice", Accuracy: 0.92},
		}
		mux := newTestMux(deps)

		Convey("When the top entries are requested", func() {
			rec := get(mux, "/scoreboard?limit=2")

			Convey("Then they come back in order", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var entries []api.Entry
				So(json.NewDecoder(rec.Body).Decode(&entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Player, ShouldEqual, "bob")
			})
		})

		Convey("When the limit is missing", func() {
			rec := get(mux, "/scoreboard")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is not a number", func() {
			rec := get(mux, "/scoreboard?limit=abc")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit exceeds the configured maximum", func() {
			rec := get(mux, "/scoreboard?limit=101")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "limit_exceeded")
		})
	})
}

func TestGetRank(t *testing.T) {
	Convey("Given a player on the scoreboard", t, func() {
		deps := newFakeDeps()
		deps.entries = []api.Entry{{Rank: 1, Player: "alice", Accuracy: 0.92}}
		mux := newTestMux(deps)

		Convey("When the player's rank is fetched", func() {
			rec := get(mux, "/rank/alice")

			Convey("Then the entry is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var entry api.Entry
				So(json.NewDecoder(rec.Body).Decode(&entry), ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
			})
		})

		Convey("When an unknown player is fetched", func() {
			rec := get(mux, "/rank/nobody")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the player segment is empty", func() {
			rec := get(mux, "/rank/")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		deps := newFakeDeps()
		mux := newTestMux(deps)

		Convey("When health is checked", func() {
			rec := get(mux, "/healthz")
			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When stats are requested", func() {
			rec := get(mux, "/stats")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var stats map[string]any
			So(json.NewDecoder(rec.Body).Decode(&stats), ShouldBeNil)
			So(stats, ShouldContainKey, "totalPlayers")
		})
	})
}
