package server

import (
	"bytes"
	"net/http"
	"time"

	"github.com/cyclopcam/crosswalk/pkg/www"
	"github.com/cyclopcam/crosswalk/server/report"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) setupHttpRoutes() {
	router := httprouter.New()

	handle := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	handle("GET", "/api/ping", s.httpPing)
	handle("GET", "/api/runs", s.httpListRuns)
	handle("GET", "/api/runs/:id", s.httpGetRun)
	handle("GET", "/api/runs/:id/aggregates", s.httpGetAggregates)
	handle("GET", "/api/runs/:id/aggregates.csv", s.httpGetAggregatesCSV)
	handle("GET", "/api/runs/:id/events", s.httpGetEvents)
	handle("GET", "/api/runs/:id/skipped", s.httpGetSkipped)
	handle("GET", "/api/runs/:id/times", s.httpGetCrossingTimes)
	handle("GET", "/api/runs/:id/equipment", s.httpGetEquipment)
	handle("GET", "/api/runs/:id/chart.png", s.httpGetChart)

	s.httpRouter = router
}

// Handler is the complete HTTP handler, including the per-IP rate limit
func (s *Server) Handler() http.Handler {
	return www.RateLimitByIP(s.httpRouter, s.rateLimit, time.Minute)
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendBytes(w, "text/plain", []byte("OK"))
}

func (s *Server) httpListRuns(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	runs, err := s.Results.ListRuns()
	www.Check(err)
	www.SendJSON(w, runs)
}

func (s *Server) httpGetRun(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	run, err := s.Results.GetRun(www.RequiredID(params, "id"))
	www.Check(err)
	www.SendJSON(w, run)
}

func (s *Server) httpGetAggregates(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rows, err := s.Results.GetAggregates(www.RequiredID(params, "id"))
	www.Check(err)
	www.SendJSON(w, rows)
}

func (s *Server) httpGetAggregatesCSV(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rows, err := s.Results.GetAggregates(www.RequiredID(params, "id"))
	www.Check(err)
	var buf bytes.Buffer
	www.Check(report.WriteAggregates(&buf, rows))
	www.SendBytes(w, "text/csv", buf.Bytes())
}

func (s *Server) httpGetEvents(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	events, err := s.Results.GetEvents(www.RequiredID(params, "id"), www.QueryValue(r, "video"))
	www.Check(err)
	www.SendJSON(w, events)
}

func (s *Server) httpGetSkipped(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	skipped, err := s.Results.GetSkipped(www.RequiredID(params, "id"))
	www.Check(err)
	www.SendJSON(w, skipped)
}

func (s *Server) httpGetCrossingTimes(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	times, err := s.Results.GetCrossingTimes(www.RequiredID(params, "id"))
	www.Check(err)
	www.SendJSON(w, times)
}

func (s *Server) httpGetEquipment(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rows, err := s.Results.GetEquipment(www.RequiredID(params, "id"))
	www.Check(err)
	www.SendJSON(w, rows)
}

func (s *Server) httpGetChart(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rows, err := s.Results.GetAggregates(www.RequiredID(params, "id"))
	www.Check(err)
	png, err := report.RenderRateChart(rows)
	www.Check(err)
	// A stored run never changes
	www.CacheSeconds(w, 3600)
	www.SendBytes(w, "image/png", png)
}
