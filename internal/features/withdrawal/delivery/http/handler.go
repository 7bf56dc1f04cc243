package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/CD-338080/Usdt-roller/internal/common/errors"
	"github.com/CD-338080/Usdt-roller/internal/common/middleware"
	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/service"
)

type WithdrawalHandler struct {
	service service.WithdrawalService
}

func NewWithdrawalHandler(service service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{
		service: service,
	}
}

func (h *WithdrawalHandler) RegisterRoutes(router *gin.RouterGroup) {
	withdrawals := router.Group("/withdrawals")
	{
		withdrawals.POST("", h.requestWithdrawal)
		withdrawals.GET("", h.listWithdrawals)
	}
}

// RegisterCallbackRoutes mounts the processor-facing callback outside the
// Telegram-authenticated group; requests authenticate with the shared
// processor token instead of init_data.
func (h *WithdrawalHandler) RegisterCallbackRoutes(router *gin.RouterGroup, apiToken string) {
	router.POST("/callback", h.processorCallback(apiToken))
}

type withdrawRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type callbackRequest struct {
	ReferenceID string `json:"reference_id" binding:"required"`
	Success     bool   `json:"success"`
	Reason      string `json:"reason"`
}

// @Summary Request a withdrawal
// @Description Accepts a payout request when the balance and referral thresholds are met; the amount is debited immediately as a reservation.
// @Tags withdrawals
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body withdrawRequest true "Withdrawal amount"
// @Success 200 {object} models.Response "Withdrawal request"
// @Router /withdrawals [post]
func (h *WithdrawalHandler) requestWithdrawal(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	var input withdrawRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperrors.NewValidationError("amount", err.Error()))
		return
	}

	resp, err := h.service.Request(c.Request.Context(), user.ID, input.Amount)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Processor outcome callback
// @Description Receives the payout processor's final verdict for a submitted withdrawal. Authenticated with the shared processor token.
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param request body callbackRequest true "Processor verdict"
// @Success 200 {object} models.Withdrawal "Withdrawal"
// @Router /payouts/callback [post]
func (h *WithdrawalHandler) processorCallback(apiToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiToken == "" || c.GetHeader("Authorization") != "Bearer "+apiToken {
			c.Error(apperrors.NewUnauthorizedError("invalid processor token"))
			return
		}

		var input callbackRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.Error(apperrors.NewValidationError("body", err.Error()))
			return
		}

		w, err := h.service.Confirm(c.Request.Context(), input.ReferenceID, input.Success, input.Reason)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, w)
	}
}

// @Summary List own withdrawal requests
// @Tags withdrawals
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} models.Withdrawal "Withdrawal requests"
// @Router /withdrawals [get]
func (h *WithdrawalHandler) listWithdrawals(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	withdrawals, err := h.service.List(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, withdrawals)
}
