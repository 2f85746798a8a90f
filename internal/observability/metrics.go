package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memory"

// Collector holds the game metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	gamesCreated   prometheus.Counter
	gamesStarted   prometheus.Counter
	gamesWon       prometheus.Counter
	activeGames    prometheus.Gauge
	cardsFlipped   prometheus.Counter
	pairs          *prometheus.CounterVec
	movesPerGame   prometheus.Histogram
	secondsPerGame prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	that := &Collector{
		registry: registry,

		gamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Boards generated for new games.",
		}),
		gamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games whose timer was started.",
		}),
		gamesWon: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_won_total",
			Help:      "Games finished with every pair matched.",
		}),
		activeGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Game controllers currently running.",
		}),
		cardsFlipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cards_flipped_total",
			Help:      "Accepted card flips.",
		}),
		pairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_total",
			Help:      "Completed pairs by outcome.",
		}, []string{"outcome"}),
		movesPerGame: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_moves",
			Help:      "Moves needed to win a game.",
			Buckets:   prometheus.LinearBuckets(4, 8, 10),
		}),
		secondsPerGame: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_duration_seconds",
			Help:      "Elapsed seconds when a game was won.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8),
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		that.gamesCreated,
		that.gamesStarted,
		that.gamesWon,
		that.activeGames,
		that.cardsFlipped,
		that.pairs,
		that.movesPerGame,
		that.secondsPerGame,
	)

	return that
}

// Handler serves the registry in the Prometheus exposition format.
func (that *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(that.registry, promhttp.HandlerOpts{Registry: that.registry})
}

func (that *Collector) Registry() *prometheus.Registry {
	return that.registry
}

func (that *Collector) GameCreated() {
	that.gamesCreated.Inc()
	that.activeGames.Inc()
}

func (that *Collector) GameStopped() {
	that.activeGames.Dec()
}

func (that *Collector) GameStarted() {
	that.gamesStarted.Inc()
}

func (that *Collector) CardFlipped() {
	that.cardsFlipped.Inc()
}

func (that *Collector) PairMatched() {
	that.pairs.WithLabelValues("matched").Inc()
}

func (that *Collector) PairMismatched() {
	that.pairs.WithLabelValues("mismatched").Inc()
}

func (that *Collector) GameWon(moves, seconds int) {
	that.gamesWon.Inc()
	that.movesPerGame.Observe(float64(moves))
	that.secondsPerGame.Observe(float64(seconds))
}
