package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"weel-backend/internal/models"
	"weel-backend/internal/ratelimiter"
	"weel-backend/internal/repositories"
	"weel-backend/internal/services"
	"weel-backend/internal/utils"
)

type AuthHandler struct {
	verification *services.VerificationService
	auth         *services.AuthService
	users        *repositories.UserRepository
}

func NewAuthHandler(verification *services.VerificationService, auth *services.AuthService, users *repositories.UserRepository) *AuthHandler {
	return &AuthHandler{verification: verification, auth: auth, users: users}
}

// sendCode — общий для sign_up/sign_in шаг выдачи кода.
func (h *AuthHandler) sendCode(c *gin.Context, phone string) bool {
	if _, err := h.verification.IssueCode(c.Request.Context(), phone); err != nil {
		switch {
		case errors.Is(err, ratelimiter.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		case errors.Is(err, utils.ErrSMSSendFailed), errors.Is(err, utils.ErrEskizAuth):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to send SMS to %s", phone)})
		default:
			log.Printf("[auth][send-code] failed: phone=%s err=%v", phone, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification code"})
		}
		return false
	}
	return true
}

// checkCode — общий шаг проверки кода: обратный поиск номера плюс счёт попыток.
func (h *AuthHandler) checkCode(c *gin.Context, code string) (string, bool) {
	phone, err := h.verification.VerifyCode(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification code expired or unknown"})
		return "", false
	}

	remaining, err := h.verification.CheckAttempt(c.Request.Context(), phone, code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLocked):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "You have been temporarily locked, please try again later"})
		case errors.Is(err, services.ErrCodeInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid code, %d attempts remaining", remaining)})
		default:
			log.Printf("[auth][check-code] failed: phone=%s err=%v", phone, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed"})
		}
		return "", false
	}
	return phone, true
}

func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User, role string) (gin.H, bool) {
	accessToken, err := h.auth.IssueAccessToken(user.ID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return nil, false
	}
	refreshToken, err := h.auth.IssueRefreshToken(user.ID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return nil, false
	}
	return gin.H{"access_token": accessToken, "refresh_token": refreshToken}, true
}

// @Summary      Регистрация по номеру телефона
// @Description  Отправляет SMS-код верификации на новый номер
// @Tags         Authorization
// @Accept       json
// @Produce      json
// @Param        request  body  models.SignUpRequest  true  "Номер телефона (9 цифр)"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Router       /api/v1/auth/sign_up/ [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phone, err := h.auth.ValidatePhone(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.users.GetByPhone(phone)
	if err != nil {
		log.Printf("[auth][sign-up] user lookup failed: err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User lookup failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "User with this phone number already exist"})
		return
	}

	if !h.sendCode(c, phone) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": fmt.Sprintf("SMS code sent to %s", phone)})
}

// @Summary      Подтверждение регистрации
// @Description  Сверяет код, создаёт пользователя с ролью USER и выдаёт токены
// @Tags         Authorization
// @Accept       json
// @Produce      json
// @Param        request  body  models.VerifyRequest  true  "Код из SMS"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Router       /api/v1/auth/sign_up/verify/ [post]
func (h *AuthHandler) SignUpVerify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phone, ok := h.checkCode(c, req.Code)
	if !ok {
		return
	}

	user := &models.User{PhoneNumber: &phone}
	if err := h.users.CreateWithRole(user, models.RoleUser); err != nil {
		log.Printf("[auth][sign-up-verify] create user failed: phone=%s err=%v", phone, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	tokens, ok := h.issueTokens(c, user, models.RoleUser)
	if !ok {
		return
	}
	log.Printf("[auth][sign-up-verify] registered: phone=%s user=%s", phone, user.ID)
	tokens["detail"] = fmt.Sprintf("User %s registered successfully with role %s", phone, models.RoleUser)
	c.JSON(http.StatusCreated, tokens)
}

// @Summary      Вход по номеру телефона
// @Tags         Authorization
// @Accept       json
// @Produce      json
// @Param        request  body  models.SignUpRequest  true  "Номер телефона (9 цифр)"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/auth/sign_in/ [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phone, err := h.auth.ValidatePhone(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByPhone(phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User lookup failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User with this phone number not found"})
		return
	}

	if !h.sendCode(c, phone) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": fmt.Sprintf("SMS code sent to %s", phone)})
}

// @Summary      Подтверждение входа
// @Tags         Authorization
// @Accept       json
// @Produce      json
// @Param        request  body  models.VerifyRequest  true  "Код из SMS"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/auth/sign_in/verify/ [post]
func (h *AuthHandler) SignInVerify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phone, ok := h.checkCode(c, req.Code)
	if !ok {
		return
	}

	user, err := h.users.GetByPhone(phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User lookup failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User with this phone number not found"})
		return
	}

	tokens, ok := h.issueTokens(c, user, models.RoleUser)
	if !ok {
		return
	}
	log.Printf("[auth][sign-in-verify] OK: phone=%s user=%s", phone, user.ID)
	c.JSON(http.StatusOK, tokens)
}

// @Summary      Обновление access-токена пользователя
// @Tags         Authorization
// @Accept       json
// @Produce      json
// @Param        request  body  models.RefreshRequest  true  "Refresh-токен"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/users/token/refresh/ [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, err := h.auth.RefreshAccessToken(req.RefreshToken, models.RoleUser)
	if err != nil {
		respondTokenError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"access_token": accessToken})
}

// respondTokenError — общее отображение ошибок обновления токена на статусы.
func respondTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token expired"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusNotFound, gin.H{"error": "Incorrect role"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token invalid"})
	}
}
