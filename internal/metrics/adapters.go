package metrics

import (
	"github.com/auctionhouse/auction-marketplace-backend/internal/api/rest"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/bidding"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/payment"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/scheduler"
)

// The registry records for the bid path, the sweep, the payment window and
// the API surface.
var (
	_ bidding.MetricsCollector   = (*Registry)(nil)
	_ scheduler.MetricsCollector = (*Registry)(nil)
	_ payment.MetricsCollector   = (*Registry)(nil)
	_ rest.APIMetrics            = (*Registry)(nil)
)
