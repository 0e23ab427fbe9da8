package http

import (
	"net/http"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/metrics"
)

// Webhook kinds used as metric labels
const (
	webhookBatch        = "batch"
	webhookSubscription = "subscription"
)

// BatchWebhookResponse reports a handled batch
type BatchWebhookResponse struct {
	BatchID             string `json:"batch_id"`
	CompletedOperations int    `json:"completed_operations"`
}

// handleWebhookValidation answers the GET the remote system sends when a webhook is registered
func (s *Server) handleWebhookValidation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleBatchWebhook godoc
// @Summary      Batch completion webhook
// @Tags         Webhooks
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Success      200  {object}  BatchWebhookResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /webhooks/mailchimp/batch [post]
func (s *Server) handleBatchWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		metrics.Webhooks.WithLabelValues(webhookBatch, "malformed").Inc()
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	notification, err := domain.ParseBatchNotification(r.PostForm)
	if err != nil {
		metrics.Webhooks.WithLabelValues(webhookBatch, "malformed").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	completion, err := s.completion.OnBatchNotification(r.Context(), notification)
	if err != nil {
		metrics.Webhooks.WithLabelValues(webhookBatch, "failed").Inc()
		s.logger.Error("batch webhook failed", "batch_id", notification.BatchID, "error", err)
		writeError(w, http.StatusBadRequest, "batch could not be handled")
		return
	}
	if completion == nil {
		metrics.Webhooks.WithLabelValues(webhookBatch, "ignored").Inc()
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ignored"})
		return
	}

	outcome := "handled"
	if completion.Replayed {
		outcome = "replayed"
	}
	metrics.Webhooks.WithLabelValues(webhookBatch, outcome).Inc()
	writeJSON(w, http.StatusOK, BatchWebhookResponse{
		BatchID:             completion.BatchID,
		CompletedOperations: completion.CompletedOperations,
	})
}

// handleSubscriptionWebhook godoc
// @Summary      List member webhook
// @Tags         Webhooks
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /webhooks/mailchimp/subscription [post]
func (s *Server) handleSubscriptionWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		metrics.Webhooks.WithLabelValues(webhookSubscription, "malformed").Inc()
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	notification, err := domain.ParseSubscriptionNotification(r.PostForm)
	if err != nil {
		metrics.Webhooks.WithLabelValues(webhookSubscription, "malformed").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.subscriptions.HandleSubscriptionNotification(r.Context(), notification); err != nil {
		metrics.Webhooks.WithLabelValues(webhookSubscription, "failed").Inc()
		s.logger.Error("subscription webhook failed",
			"list_id", notification.ListID,
			"event", notification.Event,
			"error", err,
		)
		writeError(w, http.StatusBadRequest, "subscription change could not be applied")
		return
	}

	metrics.Webhooks.WithLabelValues(webhookSubscription, "handled").Inc()
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
