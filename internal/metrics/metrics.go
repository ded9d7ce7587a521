// Package metrics defines the Prometheus instrumentation for the room engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Room lifecycle metrics
var (
	// RoomsCreated tracks total rooms created since process start
	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rooms_created_total",
			Help: "Total rooms created",
		},
	)

	// RoomsActive tracks currently registered rooms
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rooms_active",
			Help: "Currently registered rooms",
		},
	)

	// RoomsEvicted tracks dormant rooms reclaimed by the registry sweep
	RoomsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rooms_evicted_total",
			Help: "Dormant rooms evicted by the registry sweep",
		},
	)
)

// Session metrics
var (
	// ParticipantsActive tracks currently joined participants across all rooms
	ParticipantsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "participants_active",
			Help: "Currently joined participants across all rooms",
		},
	)

	// ConnectedClients tracks currently attached websocket connections
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_clients",
			Help: "Currently attached websocket connections",
		},
	)

	// TipsTotal tracks total tip events recorded
	TipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tips_total",
			Help: "Total tip events recorded",
		},
	)

	// TipAmountTotal tracks the sum of all tip amounts
	TipAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tip_amount_total",
			Help: "Sum of all tip amounts",
		},
	)

	// SnapshotsEmitted tracks sentiment snapshots computed and broadcast
	SnapshotsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_snapshots_total",
			Help: "Sentiment snapshots computed and broadcast",
		},
	)

	// BroadcastsSent tracks messages fanned out to individual connections
	BroadcastsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_messages_total",
			Help: "Messages fanned out to individual connections",
		},
	)

	// SlowClientsEvicted tracks connections dropped for not draining their send buffer
	SlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slow_clients_evicted_total",
			Help: "Connections dropped for not draining their send buffer",
		},
	)
)

// Transport metrics
var (
	// FramesDropped tracks inbound frames dropped by reason
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frames_dropped_total",
			Help: "Inbound frames dropped by reason (malformed, unrecognized, throttled, out_of_range)",
		},
		[]string{"reason"},
	)
)

// Payment bridge metrics
var (
	// PaymentAuthorizations tracks authorization attempts by outcome
	PaymentAuthorizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_authorizations_total",
			Help: "Payment authorization attempts by status (success, declined, error)",
		},
		[]string{"status"},
	)
)
