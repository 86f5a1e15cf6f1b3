package handler

import (
	"fmt"
	"net/http"

	"billboard-realtime/internal/hub"
	"billboard-realtime/internal/model"
	"billboard-realtime/internal/store"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type BillboardHandler struct {
	Store      *store.Store
	Dispatcher Dispatcher
}

type createBillboardBody struct {
	Title    string `json:"title" binding:"required,max=200"`
	Location string `json:"location" binding:"max=200"`
}

func (h *BillboardHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var body createBillboardBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	b, err := h.Store.CreateBillboard(c.Request.Context(), userID, body.Title, body.Location)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"billboard": billboardView(b)})
}

func (h *BillboardHandler) Get(c *gin.Context) {
	b, err := h.Store.GetBillboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"billboard": billboardView(b)})
}

type updateStatusBody struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus records a moderation decision and notifies the owner.
func (h *BillboardHandler) UpdateStatus(c *gin.Context) {
	var body updateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil || !model.BillboardStatus(body.Status).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	ctx := c.Request.Context()
	b, previous, err := h.Store.UpdateBillboardStatus(ctx, c.Param("id"), model.BillboardStatus(body.Status))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if previous == b.Status {
		c.JSON(http.StatusOK, gin.H{"billboard": billboardView(b), "changed": false})
		return
	}

	h.Dispatcher.DispatchToUser(b.OwnerID, hub.BillboardStatusUpdate{
		BillboardID:    b.ID,
		Title:          b.Title,
		Status:         string(b.Status),
		PreviousStatus: string(previous),
		UpdatedAt:      b.UpdatedAt,
	})

	n, err := h.Store.CreateNotification(ctx, model.Notification{
		UserID:      b.OwnerID,
		Type:        model.NotificationBillboardStatus,
		Title:       fmt.Sprintf("Billboard %s", b.Status),
		Body:        fmt.Sprintf("Your billboard %q is now %s.", b.Title, b.Status),
		Link:        fmt.Sprintf("/billboards/%s", b.ID),
		BillboardID: lo.ToPtr(b.ID),
	})
	if err != nil {
		log.WithError(err).WithFields(logTags).Warnf("Status notification for billboard %s not stored", b.ID)
	} else {
		h.Dispatcher.DispatchToUser(b.OwnerID, notificationEvent(n))
	}

	c.JSON(http.StatusOK, gin.H{"billboard": billboardView(b), "changed": true})
}
