package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	rtConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "social_realtime_connections",
			Help: "Current number of active realtime connections.",
		},
	)
	rtRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "social_realtime_rooms",
			Help: "Current number of rooms, identity rooms included.",
		},
	)
	rtEventsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "social_realtime_events_delivered_total",
			Help: "Total events delivered to clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(rtConnections, rtRooms, rtEventsDelivered)
}

func incConnections() {
	rtConnections.Inc()
}

func decConnections() {
	rtConnections.Dec()
}

func setRooms(count int) {
	rtRooms.Set(float64(count))
}

func addDelivered(count int) {
	rtEventsDelivered.Add(float64(count))
}
