package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// PendingOrderDetail points the client at an order that was stored but
// still needs a payment session
type PendingOrderDetail struct {
	OrderID uuid.UUID `json:"order_id"`
}

// CheckoutHandler places orders and reopens card payment sessions
type CheckoutHandler struct {
	BaseHandler
	placement PlacementService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(placement PlacementService) *CheckoutHandler {
	return &CheckoutHandler{placement: placement}
}

// Checkout handles POST /checkout
// @Summary      Place an order
// @Description  Place an order from the cart or explicit items. Card orders return a Stripe checkout URL; a 502 still carries the stored order id for a retry.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body orderapp.PlaceOrderRequest true "Checkout request"
// @Success      201 {object} dto.Response{data=orderapp.PlaceOrderResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo{details=PendingOrderDetail}}
// @Security     BearerAuth
// @Router       /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req orderapp.PlaceOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	input := orderapp.PlaceOrderInput{
		UserID:        userID,
		Items:         req.Items,
		AddressID:     req.AddressID,
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
	}
	if claims := middleware.GetClaims(c); claims != nil {
		input.Email = claims.Email
		input.Name = claims.UserMetadata.FullName
	}

	result, err := h.placement.PlaceOrder(c.Request.Context(), input)
	if err != nil {
		var sessionErr *order.PaymentSessionError
		if errors.As(err, &sessionErr) {
			h.paymentUnavailable(c, sessionErr)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// RetryPayment handles POST /orders/:id/pay
// @Summary      Retry card payment
// @Description  Open a new payment session for a pending card order
// @Tags         checkout
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=orderapp.PaymentSessionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo{details=PendingOrderDetail}}
// @Security     BearerAuth
// @Router       /orders/{id}/pay [post]
func (h *CheckoutHandler) RetryPayment(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	session, err := h.placement.RetryPayment(c.Request.Context(), userID, orderID)
	if err != nil {
		var sessionErr *order.PaymentSessionError
		if errors.As(err, &sessionErr) {
			h.paymentUnavailable(c, sessionErr)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// paymentUnavailable reports a committed order whose payment session could
// not be opened, so the client can retry payment for it
func (h *CheckoutHandler) paymentUnavailable(c *gin.Context, err *order.PaymentSessionError) {
	logger.L(c.Request.Context()).Error("Payment session unavailable",
		zap.String("order_id", err.OrderID.String()),
		zap.Error(err.Err),
	)
	code := err.ErrorCode()
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithDetails(
		code,
		order.ErrPaymentSession.Message,
		getRequestID(c),
		PendingOrderDetail{OrderID: err.OrderID},
	))
}
