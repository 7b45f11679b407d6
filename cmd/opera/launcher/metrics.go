package launcher

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-runtime/executive"
)

// startMetrics registers the runtime collectors and serves them on /metrics.
// The returned server is nil if metrics are off.
func startMetrics(cfg MetricsConfig, log logrus.FieldLogger) (*http.Server, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	executive.RegisterMetrics()

	addr := net.JoinHostPort(cfg.Addr, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("Metrics server started")
	return srv, nil
}
