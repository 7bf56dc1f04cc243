package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/CD-338080/Usdt-roller/internal/common/errors"
	"github.com/CD-338080/Usdt-roller/internal/common/middleware"
	"github.com/CD-338080/Usdt-roller/internal/features/account/service"
	"github.com/CD-338080/Usdt-roller/internal/game/progression"
)

type AccountHandler struct {
	service service.AccountService
}

func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{
		service: service,
	}
}

func (h *AccountHandler) RegisterRoutes(router *gin.RouterGroup) {
	account := router.Group("/account")
	{
		account.POST("/sync", h.syncAccount)
	}

	game := router.Group("/game")
	{
		game.POST("/tap", h.tap)
		game.POST("/upgrade", h.purchaseUpgrade)
		game.POST("/refill-energy", h.refillEnergy)
	}

	mineRoutes := router.Group("/mine")
	{
		mineRoutes.POST("/claim", h.claimMineProfit)
		mineRoutes.GET("/status", h.mineStatus)
	}

	router.POST("/bonus/claim", h.claimDailyBonus)
	router.GET("/referrals", h.listReferrals)

	wallet := router.Group("/wallet")
	{
		wallet.POST("/connect", h.connectWallet)
		wallet.POST("/disconnect", h.disconnectWallet)
	}
}

type syncRequest struct {
	ReferrerID string `json:"referrer_id"`
}

type upgradeRequest struct {
	Kind string `json:"kind" binding:"required"`
}

type connectWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

// @Summary Create or fetch the current account
// @Description Creates the account on first contact (crediting the referral bonus when a valid referrer is supplied) and returns the canonical snapshot.
// @Tags account
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.Snapshot "Account snapshot"
// @Router /account/sync [post]
func (h *AccountHandler) syncAccount(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	var input syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.Error(apperrors.NewValidationError("body", err.Error()))
			return
		}
	}

	var referrerID int64
	if input.ReferrerID != "" {
		parsed, err := strconv.ParseInt(input.ReferrerID, 10, 64)
		if err != nil {
			c.Error(apperrors.NewValidationError("referrer_id", "must be a numeric Telegram ID"))
			return
		}
		referrerID = parsed
	}

	snapshot, err := h.service.SyncAccount(c.Request.Context(), service.CreateParams{
		TelegramID: user.ID,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		IsPremium:  user.IsPremium,
		ReferrerID: referrerID,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// @Summary Register one tap
// @Description Spends one energy unit and credits the per-tap reward; returns the canonical snapshot.
// @Tags game
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.Snapshot "Account snapshot"
// @Router /game/tap [post]
func (h *AccountHandler) tap(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	snapshot, err := h.service.Tap(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// @Summary Purchase an upgrade
// @Description Buys the next level on the multitap, energy_limit or mine track.
// @Tags game
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body upgradeRequest true "Upgrade kind"
// @Success 200 {object} models.Snapshot "Account snapshot"
// @Router /game/upgrade [post]
func (h *AccountHandler) purchaseUpgrade(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	var input upgradeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperrors.NewValidationError("kind", err.Error()))
		return
	}

	snapshot, err := h.service.PurchaseUpgrade(c.Request.Context(), user.ID, progression.UpgradeKind(input.Kind))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// @Summary Refill energy
// @Description Spends one of the daily manual refills to restore energy to capacity.
// @Tags game
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.Snapshot "Account snapshot"
// @Router /game/refill-energy [post]
func (h *AccountHandler) refillEnergy(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	snapshot, err := h.service.RefillEnergy(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// @Summary Claim accrued mine profit
// @Description Credits the accrued passive profit and resets the accrual clock.
// @Tags mine
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.ClaimResult "Claim result"
// @Router /mine/claim [post]
func (h *AccountHandler) claimMineProfit(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	result, err := h.service.ClaimMineProfit(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Query mine status
// @Description Returns the claimable amount, current rate and last claim time. Read only.
// @Tags mine
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.MineStatus "Mine status"
// @Router /mine/status [get]
func (h *AccountHandler) mineStatus(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	status, err := h.service.MineStatus(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// @Summary Claim the daily bonus
// @Tags game
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.BonusResult "Bonus result"
// @Router /bonus/claim [post]
func (h *AccountHandler) claimDailyBonus(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	result, err := h.service.ClaimDailyBonus(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary List referred friends
// @Description Returns the referral count and a summary per referred account.
// @Tags referrals
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.ReferralList "Referral list"
// @Router /referrals [get]
func (h *AccountHandler) listReferrals(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	list, err := h.service.ListReferrals(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// @Summary Connect a wallet
// @Description Validates and stores the player's TON wallet address.
// @Tags wallet
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body connectWalletRequest true "Wallet address"
// @Success 200 {object} models.Snapshot "Account snapshot"
// @Router /wallet/connect [post]
func (h *AccountHandler) connectWallet(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	var input connectWalletRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperrors.NewValidationError("address", err.Error()))
		return
	}

	snapshot, err := h.service.ConnectWallet(c.Request.Context(), user.ID, input.Address)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// @Summary Disconnect the wallet
// @Tags wallet
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.Snapshot "Account snapshot"
// @Router /wallet/disconnect [post]
func (h *AccountHandler) disconnectWallet(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	snapshot, err := h.service.DisconnectWallet(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
