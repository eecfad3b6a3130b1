package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// Notifier delivers contact form notifications. *utils.Mailer implements it.
type Notifier interface {
	Enabled() bool
	NotifyTo() string
	Send(to, subject, body string) error
}

type ContactController struct {
	db       *gorm.DB
	notifier Notifier
}

func NewContactController(db *gorm.DB, notifier Notifier) *ContactController {
	return &ContactController{db: db, notifier: notifier}
}

// Submit stores a contact message and emails the inbox in the background.
func (c *ContactController) Submit(ctx *gin.Context) {
	type request struct {
		Name    string `json:"name" binding:"required,max=128"`
		Email   string `json:"email" binding:"required,email,max=255"`
		Subject string `json:"subject" binding:"max=255"`
		Message string `json:"message" binding:"required,max=5000"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "name, valid email and message are required")
		return
	}

	msg := models.ContactMessage{
		Name:    utils.StripTags(req.Name),
		Email:   req.Email,
		Subject: utils.StripTags(req.Subject),
		Message: utils.StripTags(req.Message),
		IP:      ctx.ClientIP(),
	}
	if msg.Name == "" || msg.Message == "" {
		utils.Error(ctx, http.StatusBadRequest, 40070, "name, valid email and message are required")
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Create(&msg).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to save message")
		return
	}

	if c.notifier != nil && c.notifier.Enabled() && c.notifier.NotifyTo() != "" {
		go c.notify(msg)
	}
	utils.Success(ctx, gin.H{"message": "thank you, we will get back to you soon"})
}

func (c *ContactController) notify(msg models.ContactMessage) {
	subject := "New contact message"
	if msg.Subject != "" {
		subject += ": " + msg.Subject
	}
	body := fmt.Sprintf("From: %s <%s>\nIP: %s\n\n%s\n", msg.Name, msg.Email, msg.IP, msg.Message)
	if err := c.notifier.Send(c.notifier.NotifyTo(), subject, body); err != nil {
		utils.Sugar.Errorw("contact notification failed", "message_id", msg.ID, "error", err)
	}
}

// List returns contact messages newest first; ?handled=true|false filters.
func (c *ContactController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	query := c.db.WithContext(ctx.Request.Context()).Model(&models.ContactMessage{})
	if v := ctx.Query("handled"); v != "" {
		handled, err := strconv.ParseBool(v)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40071, "invalid handled filter")
			return
		}
		query = query.Where("handled = ?", handled)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to count messages")
		return
	}
	var items []models.ContactMessage
	if err := query.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to list messages")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "pagination": utils.NewPagination(page, pageSize, total)})
}

// MarkHandled flags a message as answered.
func (c *ContactController) MarkHandled(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40072, "invalid message id")
		return
	}
	res := c.db.WithContext(ctx.Request.Context()).Model(&models.ContactMessage{}).Where("id = ?", id).Update("handled", true)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to update message")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40470, "message not found")
		return
	}
	utils.Success(ctx, gin.H{"message": "marked as handled"})
}
