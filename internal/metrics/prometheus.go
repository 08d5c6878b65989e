package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blogd_tokens_issued_total",
		Help: "Total number of access/refresh token pairs issued.",
	})
	TokensRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blogd_tokens_refreshed_total",
		Help: "Total number of successful refresh rotations.",
	})
	TokensRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blogd_tokens_revoked_total",
		Help: "Total number of access tokens blacklisted at logout.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blogd_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blogd_logins_failure_total",
		Help: "Total number of failed logins.",
	})
	UserRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blogd_users_registered_total",
		Help: "Total number of users registered.",
	})
)

// Register registers the custom metrics with the given registry. It should
// be called once at application startup. blacklistLen may be nil when the
// configured blacklist store cannot report its size cheaply.
func Register(reg prometheus.Registerer, blacklistLen func() int) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}

	collectors := []prometheus.Collector{
		TokensIssuedTotal,
		TokensRefreshedTotal,
		TokensRevokedTotal,
		LoginSuccessTotal,
		LoginFailureTotal,
		UserRegisteredTotal,
	}

	if blacklistLen != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "blogd_token_blacklist_size",
			Help: "Current number of revoked tokens awaiting expiry.",
		}, func() float64 { return float64(blacklistLen()) }))
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register Prometheus metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
