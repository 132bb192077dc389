package api

import (
	"io"
	"net/http"
)

// maxWebhookBody caps webhook payload size. Paddle events are small; a
// megabyte is generous.
const maxWebhookBody = 1 << 20

func (a *api) handlePaddleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, "unable to read payload")
		return
	}

	if err := a.manager.HandleWebhook(r.Context(), payload, r.Header.Get("Paddle-Signature")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
