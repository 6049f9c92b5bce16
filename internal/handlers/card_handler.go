package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"weel-backend/internal/middleware"
	"weel-backend/internal/models"
	"weel-backend/internal/services"
	"weel-backend/internal/upay"
)

type CardHandler struct {
	payments *services.PaymentService
}

func NewCardHandler(payments *services.PaymentService) *CardHandler {
	return &CardHandler{payments: payments}
}

// respondPaymentError — отображение ошибок платёжного автомата на статусы.
// Отказ провайдера отдаётся с его же описанием; ошибка разбора ответа — это
// 502 (сменившийся контракт), а не 400.
func respondPaymentError(c *gin.Context, err error) {
	var providerErr *upay.ProviderError
	switch {
	case errors.As(err, &providerErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": providerErr.Description})
	case errors.Is(err, services.ErrCardAlreadyExists):
		c.JSON(http.StatusForbidden, gin.H{"error": "Card already exist"})
	case errors.Is(err, upay.ErrInvalidExpiryFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expiry date format. Expected MMYY."})
	case errors.Is(err, services.ErrConfirmationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Confirmation ID not found"})
	case errors.Is(err, services.ErrInvalidCardState):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid card_number or expiry_date"})
	case errors.Is(err, services.ErrCardNotLinked):
		c.JSON(http.StatusNotFound, gin.H{"error": "Uzcard ID not found or expired"})
	case errors.Is(err, services.ErrCardNotConnectedToPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your card not connected to your phone_number"})
	case errors.Is(err, services.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
	case errors.Is(err, services.ErrAlreadyInState):
		c.JSON(http.StatusForbidden, gin.H{"error": "Card already in requested blacklist state"})
	case errors.Is(err, upay.ErrResponseParse):
		log.Printf("[payments] provider response parse failed: err=%v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider returned unexpected response"})
	default:
		log.Printf("[payments] operation failed: err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment operation failed"})
	}
}

// canActOn — владелец или суперпользователь.
func canActOn(c *gin.Context, target uuid.UUID) bool {
	current, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no user in context"})
		return false
	}
	role, _ := c.Get("role")
	if current != target && role != models.RoleSuperuser {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied: You don't have enough privileges"})
		return false
	}
	return true
}

// @Summary      Список карт пользователя у провайдера
// @Tags         Payments
// @Produce      json
// @Param        user_id  path  string  true  "UUID пользователя"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/cards/{user_id}/ [get]
func (h *CardHandler) GetCards(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if !canActOn(c, userID) {
		return
	}

	res, err := h.payments.ListCards(c.Request.Context(), userID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": res.Cards})
}

// @Summary      Регистрация карты (шаг 1: отправка SMS-кода)
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        request  body  models.AddCardRequest  true  "Номер карты и срок действия MMYY"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/cards/add/ [post]
func (h *CardHandler) AddCard(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no user in context"})
		return
	}

	var req models.AddCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.payments.StartCardRegistration(c.Request.Context(), userID, req.CardNumber, req.ExpiryDate); err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Sms code send successfully"})
}

// @Summary      Подтверждение карты (шаг 2: код из SMS провайдера)
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        request  body  models.ConfirmCardRequest  true  "Код подтверждения"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/cards/confirm/ [post]
func (h *CardHandler) ConfirmCard(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no user in context"})
		return
	}

	var req models.ConfirmCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.payments.ConfirmCardRegistration(c.Request.Context(), userID, req.VerifyCode); err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": "Card added successfully"})
}

// @Summary      Оплата с привязанной карты
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        user_id  path  string                true  "UUID пользователя"
// @Param        request  body  models.PayRequest     true  "Сумма в тийинах"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/cards/pay/{user_id}/ [post]
func (h *CardHandler) Pay(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if !canActOn(c, userID) {
		return
	}

	var req models.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.payments.Pay(c.Request.Context(), userID, req.AmountTiyin); err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Payment was successfully"})
}

// @Summary      Удаление карты
// @Tags         Payments
// @Param        card_id  path  int  true  "ID карты"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/cards/delete/{card_id}/ [delete]
func (h *CardHandler) DeleteCard(c *gin.Context) {
	cardID, err := strconv.ParseInt(c.Param("card_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card id"})
		return
	}

	card, err := h.payments.Card(cardID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	if !canActOn(c, card.UserID) {
		return
	}

	if err := h.payments.DeleteCard(cardID); err != nil {
		respondPaymentError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Добавить карту в чёрный список
// @Tags         Payments
// @Param        card_id  path  int  true  "ID карты"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/black-list/add/cards/{card_id}/ [post]
func (h *CardHandler) BlacklistAdd(c *gin.Context) {
	h.setBlacklist(c, true, "Card with ID: %d has been blacklisted successfully")
}

// @Summary      Убрать карту из чёрного списка
// @Tags         Payments
// @Param        card_id  path  int  true  "ID карты"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/black-list/remove/cards/{card_id}/ [post]
func (h *CardHandler) BlacklistRemove(c *gin.Context) {
	h.setBlacklist(c, false, "Card with ID: %d has been removed from blacklist successfully")
}

func (h *CardHandler) setBlacklist(c *gin.Context, blacklisted bool, okFormat string) {
	cardID, err := strconv.ParseInt(c.Param("card_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card id"})
		return
	}

	if err := h.payments.SetBlacklist(cardID, blacklisted); err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": fmt.Sprintf(okFormat, cardID)})
}
