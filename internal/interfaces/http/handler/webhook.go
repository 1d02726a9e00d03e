package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// MaxWebhookBodyBytes caps how much of a webhook payload is read
const MaxWebhookBodyBytes = 64 << 10

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// WebhookHandler receives payment processor callbacks. It is mounted
// without JWT; the signature is the only credential.
type WebhookHandler struct {
	BaseHandler
	processor WebhookProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// Handle handles POST /payments/webhook
// @Summary      Stripe webhook
// @Description  Receive Stripe events. The Stripe-Signature header is the only credential.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Stripe webhook signature"
// @Param        payload body object true "Raw Stripe event"
// @Success      200 {object} dto.Response{data=paymentapp.WebhookResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/webhook [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	signature := c.GetHeader(StripeSignatureHeader)
	if signature == "" {
		h.BadRequest(c, "Missing "+StripeSignatureHeader+" header")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxWebhookBodyBytes+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > MaxWebhookBodyBytes {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Webhook payload too large")
		return
	}

	result, err := h.processor.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, paymentapp.ErrInvalidSignature) {
			h.Error(c, http.StatusBadRequest, paymentapp.ErrInvalidSignature.Code, paymentapp.ErrInvalidSignature.Message)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
