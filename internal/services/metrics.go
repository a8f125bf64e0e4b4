package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// eventsTotal counts processed webhook events by outcome.
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_total",
			Help: "Webhook events processed, by outcome.",
		},
		[]string{"outcome"},
	)

	// commandsTotal counts chat commands that fired.
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Chat commands handled, by command.",
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(eventsTotal, commandsTotal)
}
