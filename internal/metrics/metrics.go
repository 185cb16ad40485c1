// Package metrics define los contadores Prometheus del núcleo de
// identidad. Viven en un package propio para evitar ciclos de import
// entre el coordinador y las capas que exponen el listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Intentos de autenticación (password y refresh)",
	})

	AuthFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Autenticaciones fallidas",
	})

	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Tokens emitidos por tipo",
	}, []string{"type"}) // access | refresh

	Registrations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Usuarios registrados",
	})
)

// Register registra los contadores en reg (o en el default si es nil).
// Tolera registros repetidos.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{AuthAttempts, AuthFailures, TokensIssued, Registrations} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
