package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Ad-it-ya-pa-til/cityvoice/controllers"
	"github.com/Ad-it-ya-pa-til/cityvoice/middlewares"
	"github.com/Ad-it-ya-pa-til/cityvoice/models"
)

// ComplaintRoutes sets up the complaint routes
func ComplaintRoutes(r *gin.Engine, ctl *controllers.ComplaintController, dailyLimit int) {
	complaints := r.Group("/api/complaints")
	{
		complaints.GET("", ctl.ListComplaints)
		complaints.GET("/recent", ctl.RecentComplaints)
		complaints.GET("/analytics", ctl.ComplaintAnalytics)
		complaints.GET("/mine", middlewares.AuthMiddleware(), ctl.MyComplaints)
		complaints.GET("/:displayId", ctl.GetComplaint)

		complaints.POST("", middlewares.AuthMiddleware(), middlewares.ComplaintRateLimiter(dailyLimit), ctl.CreateComplaint)
		complaints.PATCH("/:displayId/status", middlewares.AuthMiddleware(), ctl.UpdateStatus)
		complaints.PATCH("/:displayId/priority",
			middlewares.AuthMiddleware(),
			middlewares.RequireRole(models.RoleAdmin, models.RoleModerator),
			ctl.UpdatePriority)
		complaints.POST("/:displayId/upvote", middlewares.AuthMiddleware(), ctl.ToggleUpvote)
		complaints.DELETE("/:displayId", middlewares.AuthMiddleware(), ctl.DeleteComplaint)
	}
}
