// Package server exposes the estimator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/contactkeval/option-premium/internal/estimator"
	"github.com/contactkeval/option-premium/internal/logger"
	"github.com/contactkeval/option-premium/internal/report"
)

type ctxKey struct{}

// Server serves GET /estimate and GET /health.
type Server struct {
	est     *estimator.Estimator
	hour    int
	loc     *time.Location
	decoder *schema.Decoder
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id"`
}

// New builds a Server.
//
// Parameters:
//   - est: estimator that prices every request
//   - expiryHour, loc: time of day and zone that form dates expire at
func New(est *estimator.Estimator, expiryHour int, loc *time.Location) *Server {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &Server{est: est, hour: expiryHour, loc: loc, decoder: decoder}
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestID)
	router.HandleFunc("/estimate", s.handleEstimate).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting REST server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Infof("shutting down REST server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	id := requestIDFrom(r.Context())
	log := logger.WithField("request_id", id)

	var form estimator.Form
	if err := s.decoder.Decode(&form, r.URL.Query()); err != nil {
		log.Infof("bad query %q: %v", r.URL.RawQuery, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: estimator.KindInvalidInput.String(), RequestID: id})
		return
	}

	req, err := form.Request(s.hour, s.loc)
	if err == nil {
		var res *estimator.Result
		res, err = s.est.Estimate(r.Context(), req)
		if err == nil {
			log.Debugf("estimated %s %s premium=%.4f", res.Ticker, res.Contract.Side, res.Premium)
			writeJSON(w, http.StatusOK, report.NewView(res))
			return
		}
	}

	kind := estimator.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Errorf("estimate failed: %v", err)
	} else {
		log.Infof("estimate rejected: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String(), RequestID: id})
}

func statusFor(kind estimator.Kind) int {
	switch kind {
	case estimator.KindInvalidInput, estimator.KindInvalidExpiry, estimator.KindMalformedManualVolatility:
		return http.StatusBadRequest
	case estimator.KindVolatilityNotFound:
		return http.StatusNotFound
	case estimator.KindUpstreamProviderFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
