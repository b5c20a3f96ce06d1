package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Ad-it-ya-pa-til/cityvoice/controllers"
	"github.com/Ad-it-ya-pa-til/cityvoice/middlewares"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", controllers.RegisterUser)
		auth.POST("/login", controllers.LoginUser)
		auth.GET("/me", middlewares.AuthMiddleware(), controllers.GetMe)
	}
}
