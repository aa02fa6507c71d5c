// Package webapi provides a web API for the spam classification service.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"github.com/smsguard/smsguard/app/storage"
	"github.com/smsguard/smsguard/lib/bayes"
)

// Server is a web API server.
type Server struct {
	Config
}

// Config defines server parameters
type Config struct {
	Version       string        // version to show in /ping
	ListenAddr    string        // listen address
	Classifier    Classifier    // trained classifier
	SampleStore   SampleStore   // labeled sample storage
	VerdictLogger VerdictLogger // logger for check verdicts, optional
	AuthPasswd    string        // basic auth password for user "smsguard"
	Dbg           bool          // debug mode
}

// Classifier is a trained model interface.
type Classifier interface {
	Classify(raw string) bayes.Result
}

// SampleStore is a labeled corpus storage interface.
type SampleStore interface {
	Add(ctx context.Context, class bayes.Class, message string) error
	Stats(ctx context.Context) (*storage.SamplesStats, error)
}

// VerdictLogger logs check verdicts
type VerdictLogger interface {
	Log(text string, verdict bayes.Result)
}

// VerdictLoggerFunc is a functional adapter for VerdictLogger
type VerdictLoggerFunc func(text string, verdict bayes.Result)

// Log calls f(text, verdict)
func (f VerdictLoggerFunc) Log(text string, verdict bayes.Result) { f(text, verdict) }

// NewServer creates a new web API server.
func NewServer(config Config) *Server {
	return &Server{Config: config}
}

// Run starts the server and accepts requests until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	if s.AuthPasswd != "" {
		log.Printf("[INFO] basic auth enabled for webapi server")
	} else {
		log.Printf("[WARN] basic auth disabled, access to webapi is not protected")
	}

	srv := &http.Server{Addr: s.ListenAddr, Handler: s.handler(), ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("[WARN] failed to shutdown webapi server: %v", err)
		} else {
			log.Printf("[INFO] webapi server stopped")
		}
	}()

	log.Printf("[INFO] start webapi server on %s", s.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}

func (s *Server) handler() http.Handler {
	router := routegroup.New(http.NewServeMux())
	router.Use(rest.Recoverer(lgr.Default()))
	router.Use(rest.Throttle(1000))
	router.Use(rest.AppInfo("smsguard", "smsguard", s.Version), rest.Ping)
	router.Use(rest.SizeLimit(1024 * 1024)) // 1M max request size
	if s.AuthPasswd != "" {
		router.Use(rest.BasicAuthWithPrompt("smsguard", s.AuthPasswd))
	}

	router.HandleFunc("POST /check", s.checkHandler)
	router.Mount("/update").Route(func(b *routegroup.Bundle) {
		b.HandleFunc("POST /spam", s.updateSampleHandler(bayes.ClassSpam))
		b.HandleFunc("POST /ham", s.updateSampleHandler(bayes.ClassHam))
	})
	router.HandleFunc("GET /samples/stats", s.statsHandler)
	return router
}

// checkHandler handles POST /check request.
// it gets message text from the request body and returns the classification verdict.
func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Msg string `json:"msg"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		log.Printf("[WARN] can't decode request: %v", err)
		return
	}

	verdict := s.Classifier.Classify(req.Msg)
	if s.VerdictLogger != nil {
		s.VerdictLogger.Log(req.Msg, verdict)
	}
	if s.Dbg {
		log.Printf("[DEBUG] check %q: %s", req.Msg, verdict.String())
	}
	rest.RenderJSON(w, verdict)
}

// updateSampleHandler handles POST /update/spam|ham requests adding a labeled
// sample to the corpus. The stored sample takes effect after retraining.
func (s *Server) updateSampleHandler(class bayes.Class) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Msg string `json:"msg"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
			return
		}

		if err := s.SampleStore.Add(r.Context(), class, req.Msg); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			rest.RenderJSON(w, rest.JSON{"error": "can't add sample", "details": err.Error()})
			return
		}
		rest.RenderJSON(w, rest.JSON{"updated": true, "class": class.String(), "msg": req.Msg})
	}
}

// statsHandler handles GET /samples/stats request returning corpus counters.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.SampleStore.Stats(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "can't get stats", "details": err.Error()})
		return
	}
	rest.RenderJSON(w, rest.JSON{"spam": stats.TotalSpam, "ham": stats.TotalHam})
}
