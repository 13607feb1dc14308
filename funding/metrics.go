package funding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundlock_escrow_gateway_failures_total",
		Help: "Failed remote escrow calls by operation.",
	}, []string{"op"})

	approvalFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fundlock_campaign_approval_fallbacks_total",
		Help: "Campaign approvals that went live with a failed escrow deployment.",
	})

	milestonesReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fundlock_milestones_released_total",
		Help: "Milestones whose funds were released.",
	})
)
