package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Ad-it-ya-pa-til/cityvoice/middlewares"
	"github.com/Ad-it-ya-pa-til/cityvoice/models"
	"github.com/Ad-it-ya-pa-til/cityvoice/services"
	"github.com/Ad-it-ya-pa-til/cityvoice/store"
)

// ComplaintReader is the read side the listing endpoints need. The Mongo
// complaint store satisfies it.
type ComplaintReader interface {
	List(ctx context.Context, params store.ListParams) (*store.ListResult, error)
	ByOwner(ctx context.Context, ownerID string) ([]models.Complaint, error)
	Recent(ctx context.Context, limit int) ([]store.MapPoint, error)
	GetAnalytics(ctx context.Context) (*store.Analytics, error)
}

// ComplaintController exposes the complaint lifecycle over HTTP. Mutations go
// through the lifecycle service; reads go straight to the store.
type ComplaintController struct {
	Service *services.ComplaintService
	Reader  ComplaintReader
}

func NewComplaintController(service *services.ComplaintService, reader ComplaintReader) *ComplaintController {
	return &ComplaintController{Service: service, Reader: reader}
}

// CreateComplaint handles the submission of a new complaint
func (ctl *ComplaintController) CreateComplaint(c *gin.Context) {
	callerID, _ := middlewares.CallerIdentity(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Title       string           `json:"title" binding:"required,max=200"`
		Description string           `json:"description" binding:"required,max=1000"`
		Category    string           `json:"category,omitempty"`
		Location    *models.Location `json:"location,omitempty"`
		EvidenceRef string           `json:"evidenceRef,omitempty"`
		Priority    string           `json:"priority,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	complaint, err := ctl.Service.Submit(c.Request.Context(), callerID, services.SubmitInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    input.Location,
		EvidenceRef: input.EvidenceRef,
		Priority:    input.Priority,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, complaint)
}

// ListComplaints handles the public listing with filters and pagination
func (ctl *ComplaintController) ListComplaints(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := ctl.Reader.List(c.Request.Context(), store.ListParams{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Sort:     c.DefaultQuery("sort", "newest"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MyComplaints returns the complaints owned by the authenticated caller
func (ctl *ComplaintController) MyComplaints(c *gin.Context) {
	callerID, _ := middlewares.CallerIdentity(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	complaints, err := ctl.Reader.ByOwner(c.Request.Context(), callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, complaints)
}

// GetComplaint returns one complaint by display ID and bumps its view counter
func (ctl *ComplaintController) GetComplaint(c *gin.Context) {
	displayID := c.Param("displayId")

	complaint, err := ctl.Service.Get(c.Request.Context(), displayID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := ctl.Service.RecordView(c.Request.Context(), displayID); err != nil {
		log.Warn().Err(err).Str("complaint", displayID).Msg("failed to record view")
	} else {
		complaint.Views++
	}

	callerID, _ := middlewares.CallerIdentity(c)
	c.JSON(http.StatusOK, gin.H{
		"complaint":    complaint,
		"userHasVoted": ctl.Service.HasUpvoted(c.Request.Context(), callerID, complaint),
	})
}

// UpdateStatus applies a status transition to a complaint
func (ctl *ComplaintController) UpdateStatus(c *gin.Context) {
	callerID, callerRole := middlewares.CallerIdentity(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Status  string `json:"status" binding:"required"`
		Message string `json:"message,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	complaint, err := ctl.Service.Transition(c.Request.Context(), callerID, callerRole,
		c.Param("displayId"), models.ComplaintStatus(input.Status), input.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, complaint)
}

// UpdatePriority changes a complaint's priority (privileged roles only)
func (ctl *ComplaintController) UpdatePriority(c *gin.Context) {
	callerID, callerRole := middlewares.CallerIdentity(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Priority string `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	complaint, err := ctl.Service.SetPriority(c.Request.Context(), callerID, callerRole,
		c.Param("displayId"), models.ComplaintPriority(input.Priority))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, complaint)
}

// DeleteComplaint removes a complaint entirely
func (ctl *ComplaintController) DeleteComplaint(c *gin.Context) {
	callerID, callerRole := middlewares.CallerIdentity(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := ctl.Service.Remove(c.Request.Context(), callerID, callerRole, c.Param("displayId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Complaint deleted successfully"})
}

// ToggleUpvote casts or retracts the caller's upvote on a complaint
func (ctl *ComplaintController) ToggleUpvote(c *gin.Context) {
	callerID, _ := middlewares.CallerIdentity(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	voted, upvotes, err := ctl.Service.ToggleUpvote(c.Request.Context(), callerID, c.Param("displayId"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Upvote removed successfully"
	if voted {
		message = "Upvote cast successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      message,
		"userHasVoted": voted,
		"upvotes":      upvotes,
	})
}

// RecentComplaints returns the latest complaints with coordinates for the map
func (ctl *ComplaintController) RecentComplaints(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	points, err := ctl.Reader.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, points)
}

// ComplaintAnalytics returns analytical data about complaints
func (ctl *ComplaintController) ComplaintAnalytics(c *gin.Context) {
	analytics, err := ctl.Reader.GetAnalytics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}
