package webhooks

import (
	"io"
	"net/http"

	"github.com/bundlehubgh/bundlehub-backend/api/responses"
	paystackwebhook "github.com/bundlehubgh/bundlehub-backend/internal/webhooks/paystack"
	pkgerrors "github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
	"github.com/bundlehubgh/bundlehub-backend/pkg/paystack"
)

const maxWebhookBody = 1 << 20

// SignatureVerifier checks the webhook HMAC over the raw body.
type SignatureVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

// Paystack verifies the HMAC-SHA512 signature over the untouched request
// body before any parsing, then hands the event to the processor.
func Paystack(svc *paystackwebhook.Service, verifier SignatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		signature := r.Header.Get(paystack.SignatureHeader)
		if verifier == nil || !verifier.VerifySignature(body, signature) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeSignature, "signature verification failed"))
			return
		}

		event, err := paystackwebhook.ParseEvent(body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.HandleEvent(r.Context(), event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
