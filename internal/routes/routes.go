package routes

import (
	"github.com/gin-gonic/gin"

	"weel-backend/internal/handlers"
	"weel-backend/internal/middleware"
	"weel-backend/internal/models"
	"weel-backend/internal/services"
)

func SetupRoutes(
	r *gin.Engine,
	auth *services.AuthService,
	authHandler *handlers.AuthHandler,
	superuserHandler *handlers.SuperuserHandler,
	cardHandler *handlers.CardHandler,
) *gin.Engine {

	api := r.Group("/api/v1")

	// ---- public
	api.POST("/auth/sign_up/", authHandler.SignUp)
	api.POST("/auth/sign_up/verify/", authHandler.SignUpVerify)
	api.POST("/auth/sign_in/", authHandler.SignIn)
	api.POST("/auth/sign_in/verify/", authHandler.SignInVerify)
	api.POST("/users/token/refresh/", authHandler.RefreshToken)

	api.POST("/auth/superusers/sign_up/", superuserHandler.SignUp) // защищён X-API-Key
	api.POST("/auth/superusers/sign_in/", superuserHandler.SignIn)
	api.POST("/superusers/token/refresh/", superuserHandler.RefreshToken)

	// ---- protected
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(auth))

	cards := protected.Group("/cards")
	{
		cards.GET("/:user_id/", cardHandler.GetCards)
		cards.POST("/add/", cardHandler.AddCard)
		cards.POST("/confirm/", cardHandler.ConfirmCard)
		cards.POST("/pay/:user_id/", cardHandler.Pay)
		cards.DELETE("/delete/:card_id/", cardHandler.DeleteCard)
	}

	superusers := protected.Group("", middleware.RequireRoles(models.RoleSuperuser))
	{
		superusers.GET("/superusers/", superuserHandler.List)
		superusers.POST("/black-list/add/cards/:card_id/", cardHandler.BlacklistAdd)
		superusers.POST("/black-list/remove/cards/:card_id/", cardHandler.BlacklistRemove)
	}

	return r
}
