// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"errors"

	"github.com/example/solyield/internal/program"
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric names broken out for reuse.
const (
	InitializeTotalName     = "initialize_total"
	InitializeSecondsName   = "initialize_duration_sec"
	StateReadsTotalName     = "state_reads_total"
	BalanceFetchSecondsName = "balance_fetch_duration_sec"
)

const subsystem = "solyield"

var (
	InitializeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      InitializeTotalName,
			Help:      "Initialize calls by outcome.",
		}, []string{"outcome"})

	InitializeSeconds = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      InitializeSecondsName,
			Help:      "Initialize round-trip time in seconds.",
		})

	StateReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      StateReadsTotalName,
			Help:      "Global state reads by source.",
		}, []string{"source"})

	BalanceFetchSeconds = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      BalanceFetchSecondsName,
			Help:      "Balance lookups that missed the cache, in seconds.",
		})
)

// Register adds all collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{InitializeTotal, InitializeSeconds, StateReadsTotal, BalanceFetchSeconds} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Outcome labels an initialize result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, program.ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, program.ErrInsufficientResources):
		return "insufficient_resources"
	case errors.Is(err, program.ErrAddressDerivationMismatch):
		return "address_mismatch"
	case errors.Is(err, program.ErrSignerUnavailable):
		return "signer_unavailable"
	}
	return "error"
}
