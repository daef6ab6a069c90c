package handler

import (
	"context"
	"errors"

	"meta-anchor/common"
	"meta-anchor/controller/respond"
	"meta-anchor/service/token_service"
	"meta-anchor/service/user_service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// UserService identity registration
type UserService interface {
	Register(ctx context.Context, userID string) (*user_service.RegisteredIdentity, error)
}

// TokenService token queries and burns
type TokenService interface {
	Balance(ctx context.Context, wallet string) (*token_service.BalanceInfo, error)
	TotalSupply(ctx context.Context) (decimal.Decimal, error)
	History(ctx context.Context, wallet string) ([]*token_service.TransferEvent, error)
	Burn(ctx context.Context, req *token_service.BurnRequest) (*token_service.TransferResult, error)
}

// TokenHandler registration and token handler
type TokenHandler struct {
	userService  UserService
	tokenService TokenService
}

// NewTokenHandler create token handler instance
func NewTokenHandler(userService UserService, tokenService TokenService) *TokenHandler {
	return &TokenHandler{userService: userService, tokenService: tokenService}
}

// Register create a user with a fresh wallet
// @Summary      Register user
// @Description  Create a wallet for user_id and grant the initial token amount. The private key is returned only in this response. 207 means registered but the grant failed.
// @Tags         Users
// @Accept       multipart/form-data
// @Produce      json
// @Param        user_id  formData  string  true  "User ID"
// @Success      200  {object}  respond.Response{data=respond.RegisterResponse}
// @Success      207  {object}  respond.Response{data=respond.RegisterResponse}  "Registered, grant failed"
// @Failure      400  {object}  respond.Response
// @Failure      409  {object}  respond.Response
// @Failure      500  {object}  respond.Response
// @Router       /register [post]
func (h *TokenHandler) Register(c *gin.Context) {
	userID := c.PostForm("user_id")
	if userID == "" {
		respond.InvalidParam(c, "user_id is required")
		return
	}

	identity, err := h.userService.Register(c.Request.Context(), userID)
	if identity != nil && errors.Is(err, common.ErrRewardFailed) {
		respond.PartialSuccess(c, respond.ToRegisterResponse(identity), err)
		return
	}
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Success(c, respond.ToRegisterResponse(identity))
}

// GetBalance native and token balance
// @Summary      Get balance
// @Tags         Tokens
// @Produce      json
// @Param        wallet  path      string  true  "Wallet address"
// @Success      200     {object}  respond.Response{data=token_service.BalanceInfo}
// @Failure      400     {object}  respond.Response
// @Failure      500     {object}  respond.Response
// @Router       /balance/{wallet} [get]
func (h *TokenHandler) GetBalance(c *gin.Context) {
	info, err := h.tokenService.Balance(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Success(c, info)
}

// GetTotalSupply token total supply
// @Summary      Get total supply
// @Tags         Tokens
// @Produce      json
// @Success      200  {object}  respond.Response{data=respond.TotalSupplyResponse}
// @Failure      500  {object}  respond.Response
// @Router       /total-supply [get]
func (h *TokenHandler) GetTotalSupply(c *gin.Context) {
	supply, err := h.tokenService.TotalSupply(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Success(c, respond.ToTotalSupplyResponse(supply))
}

// GetTransactions transfer history, newest first
// @Summary      Get token transfers
// @Description  Transfer events sent or received by the wallet within the recent block window, newest first
// @Tags         Tokens
// @Produce      json
// @Param        wallet  path      string  true  "Wallet address"
// @Success      200     {object}  respond.Response{data=respond.TransactionsResponse}
// @Failure      400     {object}  respond.Response
// @Failure      500     {object}  respond.Response
// @Router       /transactions/{wallet} [get]
func (h *TokenHandler) GetTransactions(c *gin.Context) {
	wallet := c.Param("wallet")
	events, err := h.tokenService.History(c.Request.Context(), wallet)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Success(c, respond.ToTransactionsResponse(wallet, events))
}

// Burn destroy tokens signed by the wallet's own key
// @Summary      Burn tokens
// @Tags         Tokens
// @Accept       json
// @Produce      json
// @Param        request  body      respond.BurnRequest  true  "Burn request"
// @Success      200      {object}  respond.Response{data=respond.BurnResponse}
// @Failure      400      {object}  respond.Response
// @Failure      403      {object}  respond.Response
// @Failure      404      {object}  respond.Response
// @Failure      500      {object}  respond.Response
// @Router       /burn [post]
func (h *TokenHandler) Burn(c *gin.Context) {
	var req respond.BurnRequest
	if err := bindJSONWithOptionalGzip(c, &req); err != nil {
		respond.InvalidParam(c, "from_wallet, private_key and amount are required")
		return
	}

	result, err := h.tokenService.Burn(c.Request.Context(), &token_service.BurnRequest{
		FromWallet: req.FromWallet,
		PrivateKey: req.PrivateKey,
		Amount:     req.Amount,
	})
	if errors.Is(err, common.ErrUnauthorized) {
		respond.Forbidden(c, "Invalid private key")
		return
	}
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Success(c, respond.ToBurnResponse(result))
}
