package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/crosswalk/server/resultdb"
	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
)

// Server exposes stored runs over a read-only HTTP API
type Server struct {
	Log     logs.Log
	Results *resultdb.ResultDB

	rateLimit  int
	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
}

func NewServer(log logs.Log, cfg *Config, results *resultdb.ResultDB) *Server {
	s := &Server{
		Log:       log,
		Results:   results,
		rateLimit: cfg.RateLimit,
	}
	s.setupHttpRoutes()
	return s
}

// port example: ":8080"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.Handler(),
	}
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) ListenForKillSignals() {
	s.Log.Infof("ListenForKillSignals starting")
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. ListenForKillSignals will exit after shutdown", sig.String())
			s.Shutdown()
		} else {
			// This path gets hit when Shutdown() is called by something other than ourselves, and Shutdown() closes the signalIn channel.
			s.Log.Infof("signalIn closed. ListenForKillSignals will exit now")
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
	}
	if s.httpServer != nil {
		s.Log.Infof("Closing HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("HTTP shutdown error: %v", err)
		}
	}
	s.Results.Close()
	s.Log.Infof("Shutdown complete")
}
