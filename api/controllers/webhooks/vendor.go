package webhooks

import (
	"io"
	"net/http"
	"time"

	"github.com/bundlehubgh/bundlehub-backend/api/responses"
	"github.com/bundlehubgh/bundlehub-backend/internal/orders"
	"github.com/bundlehubgh/bundlehub-backend/internal/vendor"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
)

// Vendor ingests order status updates from the fulfillment vendor. The
// endpoint always acknowledges with 200: the vendor retries on anything
// else and replays are already tolerated downstream, so surfacing internal
// failures would only multiply deliveries.
func Vendor(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ack := func() {
			responses.WriteSuccess(w, map[string]string{"status": "received"})
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "reading vendor webhook body", err)
			}
			ack()
			return
		}

		event, err := vendor.ParseWebhook(body, time.Now().UTC())
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "parsing vendor webhook", err)
			}
			ack()
			return
		}

		if _, err := svc.ApplyVendorEvent(r.Context(), event); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "applying vendor webhook", err)
			}
		}
		ack()
	}
}
