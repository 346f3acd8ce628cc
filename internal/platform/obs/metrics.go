// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

/*
Package obs exposes operational metrics for the IAM core via Prometheus.

It tracks the security-relevant counters an operator actually alerts on:
authorization outcomes, token issuance volume, and revocation results.

Usage:

	obs.Init()                      // once, during startup
	router.Get("/metrics", obs.Handler().ServeHTTP)
*/
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IAM counters.
var (
	authzDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labtrace_authz_decisions_total",
			Help: "Authorization gate decisions by outcome.",
		},
		[]string{"outcome"}, // granted | forbidden | unauthenticated
	)

	tokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labtrace_tokens_issued_total",
			Help: "Signed tokens issued by type.",
		},
		[]string{"type"}, // access | refresh
	)

	tokenRevocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labtrace_token_revocations_total",
			Help: "Token revocation attempts by result.",
		},
		[]string{"result"}, // revoked | skipped
	)
)

// Init registers the IAM collectors with the default registry.
//
// Call exactly once during startup; the counters work unregistered (tests
// never need Init), they just aren't scrapeable until registered.
func Init() {
	prometheus.MustRegister(authzDecisionsTotal, tokensIssuedTotal, tokenRevocationsTotal)
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthzDecision records one authorization gate outcome.
func AuthzDecision(outcome string) {
	authzDecisionsTotal.WithLabelValues(outcome).Inc()
}

// TokenIssued records one issued token of the given type.
func TokenIssued(tokenType string) {
	tokensIssuedTotal.WithLabelValues(tokenType).Inc()
}

// TokenRevocation records one revocation attempt result.
func TokenRevocation(result string) {
	tokenRevocationsTotal.WithLabelValues(result).Inc()
}
