package handler

import (
	"io"
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	paymentUC *usecase.PaymentUsecase
	tokenUC   *usecase.TokenUsecase
}

func NewPaymentHandler(paymentUC *usecase.PaymentUsecase, tokenUC *usecase.TokenUsecase) *PaymentHandler {
	return &PaymentHandler{paymentUC: paymentUC, tokenUC: tokenUC}
}

type InitializePaymentRequest struct {
	OrderID int64 `json:"order_id"`
}

type VerifyTokenRequest struct {
	OrderNumber string `json:"order_number"`
	Token       string `json:"token"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payments")

	//initializeだけ認証が要る。verify/webhookはゲートウェイ・リダイレクト起点
	g.POST("/initialize", h.initialize, middleware.AuthJWT(cfg))
	g.GET("/verify", h.verify)
	g.POST("/webhook", h.webhook)
	g.POST("/verify-token", h.verifyToken)

	//手動リコンサイル用（管理者のみ）
	g.GET("/unmatched", h.listUnmatched, middleware.AuthJWT(cfg))
}

func (h *PaymentHandler) initialize(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req InitializePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.paymentUC.InitializePayment(c.Request().Context(), userID, req.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 決済ページから戻ったクライアントの照会
func (h *PaymentHandler) verify(c echo.Context) error {
	reference := c.QueryParam("reference")
	if reference == "" {
		//Paystackはtrxrefでも返してくる
		reference = c.QueryParam("trxref")
	}

	out, err := h.paymentUC.ReconcileByReference(c.Request().Context(), reference)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ゲートウェイからのwebhook。署名NGは何も読まずに拒否
func (h *PaymentHandler) webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	signature := c.Request().Header.Get("x-paystack-signature")

	if _, err := h.paymentUC.HandleWebhook(c.Request().Context(), signature, body); err != nil {
		return writeError(c, err)
	}

	//再送ループを避けるため処理できたら常に200
	return c.NoContent(http.StatusOK)
}

func (h *PaymentHandler) listUnmatched(c echo.Context) error {
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	if role != string(model.RoleAdmin) {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	out, err := h.paymentUC.ListUnmatchedPayments(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) verifyToken(c echo.Context) error {
	var req VerifyTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.tokenUC.VerifyToken(c.Request().Context(), req.OrderNumber, req.Token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
