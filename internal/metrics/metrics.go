// Package metrics exposes counters for pay runs, voids and backups.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RecordsAdded  prometheus.Counter
	RecordsEdited prometheus.Counter
	AmountPaid    *prometheus.CounterVec
	Voids         *prometheus.CounterVec
	Commands      *prometheus.CounterVec
	Backups       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paystat",
			Name:      "records_added_total",
			Help:      "Pay records added to the ledger.",
		}),
		RecordsEdited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paystat",
			Name:      "records_edited_total",
			Help:      "Pay records edited.",
		}),
		AmountPaid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paystat",
			Name:      "amount_paid_total",
			Help:      "Currency paid out in newly recorded pay runs.",
		}, []string{"kind"}),
		Voids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paystat",
			Name:      "voids_total",
			Help:      "Void actions by outcome.",
		}, []string{"outcome"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paystat",
			Name:      "commands_total",
			Help:      "Bot commands handled by result.",
		}, []string{"command", "result"}),
		Backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paystat",
			Name:      "backups_total",
			Help:      "Backup runs by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.RecordsAdded,
		m.RecordsEdited,
		m.AmountPaid,
		m.Voids,
		m.Commands,
		m.Backups,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
