package api

import (
	"net/http"
	"strconv"
	"time"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/auth"
	"ferremas-fulfillment/internal/models"
	"ferremas-fulfillment/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders    *service.OrderService
	payments  *service.PaymentService
	shipments *service.ShipmentService
	pricing   *service.PricingService
	verifier  *auth.Verifier
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	payments *service.PaymentService,
	shipments *service.ShipmentService,
	pricing *service.PricingService,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		orders:    orders,
		payments:  payments,
		shipments: shipments,
		pricing:   pricing,
		verifier:  verifier,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(identityMiddleware(h.verifier))
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/lines", h.addOrderLine)
		v1.DELETE("/orders/:id/lines/:lineId", h.removeOrderLine)
		v1.POST("/orders/:id/transition", h.transitionOrder)
		v1.GET("/orders/:id/payments", h.listOrderPayments)
		v1.GET("/orders/:id/shipment", h.getOrderShipment)

		v1.POST("/payments", h.createPayment)
		v1.GET("/payments/:id", h.getPayment)
		v1.POST("/payments/process", h.processPayment)
		v1.POST("/payments/verify-transfer", h.verifyTransfer)

		v1.POST("/shipments/quote", h.quoteShipment)
		v1.POST("/shipments", h.createShipment)
		v1.GET("/shipments/:id", h.getShipment)
		v1.PATCH("/shipments/:id/status", h.updateShipmentStatus)

		v1.GET("/compare/products/:productId", h.compare)
		v1.GET("/compare/history", h.compareHistory)
		v1.GET("/compare/history/all", h.compareHistoryAll)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	identity := identityFrom(c)
	if req.UserID == 0 {
		req.UserID = identity.UserID
	}

	order, err := h.orders.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	identity := identityFrom(c)

	orders, err := h.orders.ListByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, lines, err := h.orders.Get(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "lines": lines})
}

func (h *Handler) addOrderLine(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.OrderLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	line, err := h.orders.AddLine(c.Request.Context(), orderID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

func (h *Handler) removeOrderLine(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	if err := h.orders.RemoveLine(c.Request.Context(), orderID, lineID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type transitionRequest struct {
	Target models.OrderStatus `json:"target" binding:"required"`
}

func (h *Handler) transitionOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	order, err := h.orders.Transition(c.Request.Context(), identityFrom(c), orderID, req.Target)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listOrderPayments(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	payments, err := h.payments.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *Handler) getOrderShipment(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	shipment, err := h.shipments.GetActiveByOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

func (h *Handler) getPayment(c *gin.Context) {
	paymentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.Get(c.Request.Context(), paymentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) createPayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	payment, err := h.payments.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

type processPaymentRequest struct {
	OrderID int64  `json:"order_id" binding:"required"`
	Amount  int64  `json:"amount" binding:"required"`
	Token   string `json:"token"`
}

func (h *Handler) processPayment(c *gin.Context) {
	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	payment, err := h.payments.Process(c.Request.Context(), req.OrderID, req.Amount, req.Token)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

type verifyTransferRequest struct {
	Reference string `json:"reference" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
}

func (h *Handler) verifyTransfer(c *gin.Context) {
	var req verifyTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	payment, err := h.payments.VerifyTransfer(c.Request.Context(), req.Reference, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) quoteShipment(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	offers, err := h.shipments.Quote(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

func (h *Handler) createShipment(c *gin.Context) {
	identity := identityFrom(c)
	if !auth.Can(identity.Role, auth.CapManageShipments) {
		writeError(c, apperrors.Authorization("role %s may not manage shipments", identity.Role))
		return
	}

	var req service.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	shipment, err := h.shipments.Create(c.Request.Context(), identity, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shipment)
}

func (h *Handler) getShipment(c *gin.Context) {
	shipmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	shipment, err := h.shipments.Get(c.Request.Context(), shipmentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

type updateShipmentStatusRequest struct {
	CourierStatus string `json:"courier_status" binding:"required"`
}

func (h *Handler) updateShipmentStatus(c *gin.Context) {
	identity := identityFrom(c)
	if !auth.Can(identity.Role, auth.CapManageShipments) {
		writeError(c, apperrors.Authorization("role %s may not manage shipments", identity.Role))
		return
	}

	shipmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateShipmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	shipment, err := h.shipments.UpdateStatus(c.Request.Context(), shipmentID, req.CourierStatus)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

func (h *Handler) compare(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	result, err := h.pricing.Compare(c.Request.Context(), productID)
	if err != nil {
		writeError(c, err)
		return
	}

	identity := identityFrom(c)
	if _, err := h.pricing.SaveHistory(c.Request.Context(), identity.UserID,
		result.ProductLabel, result.FerremasPrice, result.Results); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) compareHistory(c *gin.Context) {
	identity := identityFrom(c)

	snaps, err := h.pricing.GetHistory(c.Request.Context(), identity.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": snaps})
}

func (h *Handler) compareHistoryAll(c *gin.Context) {
	identity := identityFrom(c)
	if !auth.Can(identity.Role, auth.CapViewAllHistory) {
		writeError(c, apperrors.Authorization("role %s may not view all history", identity.Role))
		return
	}

	snaps, err := h.pricing.GetHistoryAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": snaps})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
