package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests   *prometheus.CounterVec
	created    *prometheus.CounterVec
	principals prometheus.Counter
	watches    prometheus.Gauge
	snapshots  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "badbar_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		created: f.NewCounterVec(prometheus.CounterOpts{
			Name: "badbar_documents_created_total",
			Help: "Documents created by collection",
		}, []string{"collection"}),
		principals: f.NewCounter(prometheus.CounterOpts{
			Name: "badbar_principals_issued_total",
			Help: "Anonymous principals issued",
		}),
		watches: f.NewGauge(prometheus.GaugeOpts{
			Name: "badbar_watches",
			Help: "Open watch sockets",
		}),
		snapshots: f.NewCounter(prometheus.CounterOpts{
			Name: "badbar_snapshots_sent_total",
			Help: "Snapshots written to watch sockets",
		}),
	}
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
