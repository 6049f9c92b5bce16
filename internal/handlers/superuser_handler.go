package handlers

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"weel-backend/internal/models"
	"weel-backend/internal/repositories"
	"weel-backend/internal/services"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

type SuperuserHandler struct {
	auth   *services.AuthService
	users  *repositories.UserRepository
	apiKey string
}

func NewSuperuserHandler(auth *services.AuthService, users *repositories.UserRepository, apiKey string) *SuperuserHandler {
	return &SuperuserHandler{auth: auth, users: users, apiKey: apiKey}
}

func validateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username must be 3-50 characters of letters, digits or underscore")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain both letters and digits")
	}
	return nil
}

// @Summary      Создание суперпользователя
// @Description  Требует заголовок X-API-Key
// @Tags         Administration
// @Accept       json
// @Produce      json
// @Param        request  body  models.SuperuserCredentials  true  "Логин и пароль"
// @Success      201  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/auth/superusers/sign_up/ [post]
func (h *SuperuserHandler) SignUp(c *gin.Context) {
	if strings.TrimSpace(c.GetHeader("X-API-Key")) != h.apiKey {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid API key"})
		return
	}

	var req models.SuperuserCredentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.users.GetByUsername(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User lookup failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Username already exist"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := &models.User{Username: &req.Username, PasswordHash: string(hash)}
	if err := h.users.CreateWithRole(user, models.RoleSuperuser); err != nil {
		log.Printf("[admin][sign-up] create superuser failed: username=%s err=%v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create superuser"})
		return
	}

	log.Printf("[admin][sign-up] superuser created: username=%s", req.Username)
	c.JSON(http.StatusCreated, gin.H{"detail": fmt.Sprintf("Administrator: %s created successfully", req.Username)})
}

// @Summary      Вход суперпользователя
// @Tags         Administration
// @Accept       json
// @Produce      json
// @Param        request  body  models.SuperuserCredentials  true  "Логин и пароль"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/auth/superusers/sign_in/ [post]
func (h *SuperuserHandler) SignIn(c *gin.Context) {
	var req models.SuperuserCredentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByUsername(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User lookup failed"})
		return
	}
	if user == nil || !user.HasRole(models.RoleSuperuser) ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect username or password"})
		return
	}

	accessToken, err := h.auth.IssueAccessToken(user.ID, models.RoleSuperuser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}
	refreshToken, err := h.auth.IssueRefreshToken(user.ID, models.RoleSuperuser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	log.Printf("[admin][sign-in] OK: username=%s", req.Username)
	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"detail":        fmt.Sprintf("Superuser: %s logged into the account successfully", req.Username),
	})
}

// @Summary      Обновление access-токена суперпользователя
// @Tags         Administration
// @Accept       json
// @Produce      json
// @Param        request  body  models.RefreshRequest  true  "Refresh-токен"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/superusers/token/refresh/ [post]
func (h *SuperuserHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, err := h.auth.RefreshAccessToken(req.RefreshToken, models.RoleSuperuser)
	if err != nil {
		respondTokenError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"access_token": accessToken})
}

// @Summary      Список суперпользователей
// @Tags         Administration
// @Produce      json
// @Success      200  {array}  models.User
// @Router       /api/v1/superusers/ [get]
func (h *SuperuserHandler) List(c *gin.Context) {
	superusers, err := h.users.ListByRole(models.RoleSuperuser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list superusers"})
		return
	}
	c.JSON(http.StatusOK, superusers)
}
