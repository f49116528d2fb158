package mpt

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for the node database.
var (
	nodeCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of node lookups served from the node cache",
			Name:      "node_cache_hits_total",
			Namespace: "neompt",
		},
	)
	nodeCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of node lookups that missed the node cache",
			Name:      "node_cache_misses_total",
			Namespace: "neompt",
		},
	)
	flushedNodes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of node changes written on trie flush",
			Name:      "flushed_nodes_total",
			Namespace: "neompt",
		},
	)
)

func init() {
	prometheus.MustRegister(
		nodeCacheHits,
		nodeCacheMisses,
		flushedNodes,
	)
}
