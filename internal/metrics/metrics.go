// Package metrics exposes the operational surface named in SPEC_FULL.md's
// domain-stack expansion: spool size, batch size and DB-outage counters on
// /metrics, and a /healthz liveness probe, served by a gorilla/mux router
// the way the teacher wires its HTTP routes in server.go. The teacher
// itself only consumes prometheus/client_golang as a query client
// (internal/metricdata/prometheus.go, promapi/promv1); this is the same
// dependency used the other direction, to expose metrics instead of
// reading them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ClusterCockpit/scanhub-edge/pkg/log"
)

var (
	SpoolBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scanhub_spool_bytes",
		Help: "Current size of the spool file in bytes.",
	})

	SpoolOffsetBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scanhub_spool_offset_bytes",
		Help: "Byte offset committed to the destination database.",
	})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanhub_flush_batch_size",
		Help:    "Number of records in each batch the flush worker inserts.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanhub_scans_total",
		Help: "Total barcodes assembled and appended to the spool.",
	})

	DBOutagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanhub_db_outages_total",
		Help: "Number of times the flush worker lost its database connection.",
	})

	IntegrityRecoveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanhub_integrity_recoveries_total",
		Help: "Number of batches that required row-by-row duplicate-absorbing recovery.",
	})
)

// Server serves /metrics and /healthz for operational tooling. It is not
// part of the ingest pipeline's data path — see spec.md's Out-of-scope
// list (log-file sink, config, UI) for the same "thin side port" framing.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a Server listening on addr. An empty addr disables the
// endpoint entirely (metrics_addr is optional in spec.md §6's expanded
// config).
func NewServer(addr string) *Server {
	if addr == "" {
		return nil
	}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{httpServer: &http.Server{Addr: addr, Handler: r}}
}

// Run serves until ctx is cancelled, then shuts down with a bounded grace
// period so it honors the same ~5 second shutdown budget as the Scanner
// and Flush tasks.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		<-ctx.Done()
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warnf("metrics server shutdown: %v", err)
		}
		return nil
	}
}
