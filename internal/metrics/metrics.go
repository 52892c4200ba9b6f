// Package metrics exposes Prometheus counters for token minting, the installation
// token cache and outbound GitHub calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gh4j"

// Token kinds.
const (
	KindApp          = "app"
	KindInstallation = "installation"
)

// Cache lookup results.
const (
	ResultHit       = "hit"
	ResultMiss      = "miss"
	ResultCoalesced = "coalesced"
	ResultStore     = "store"
)

var (
	// TokensMinted counts freshly signed app tokens and exchanged installation tokens.
	TokensMinted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "minted_total",
			Help:      "Total number of newly minted tokens by kind",
		},
		[]string{"kind"},
	)

	// TokenErrors counts failures to produce a token.
	TokenErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "errors_total",
			Help:      "Total number of failures to produce a token by kind",
		},
		[]string{"kind"},
	)

	// CacheLookups counts installation cache lookups by result.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "installation_cache",
			Name:      "lookups_total",
			Help:      "Total number of installation token lookups by result",
		},
		[]string{"result"},
	)

	// CacheEvictions counts entries dropped because the cache was full.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "installation_cache",
			Name:      "evictions_total",
			Help:      "Total number of installation tokens evicted by the capacity bound",
		},
	)

	// GraphQLRetries counts queries retried with their fallback body.
	GraphQLRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "fallback_retries_total",
			Help:      "Total number of GraphQL queries retried with a fallback query",
		},
	)

	// RateLimited counts responses classified as rate limited.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "github",
			Name:      "rate_limited_total",
			Help:      "Total number of GitHub responses classified as rate limited",
		},
		[]string{"api"},
	)
)
