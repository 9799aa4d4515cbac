package feature

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/describly/feature-board-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// SuggestRequestBody 定义了提交建议时请求体的JSON结构
type SuggestRequestBody struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category"`
}

// FeatureResponse 是单条建议的API响应模型
type FeatureResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"createdAt"`
}

func formatFeature(f *Feature) FeatureResponse {
	return FeatureResponse{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Category:    f.Category,
		Status:      string(f.Status),
		CreatedAt:   f.CreatedAt.Unix(),
	}
}

// Suggest 处理提交新功能建议的请求
func Suggest(c *gin.Context) {
	voterID := c.GetString(user.VoterIDKey)

	var body SuggestRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	newFeature, err := SuggestFeature(voterID, body.Title, body.Description, body.Category)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.Is(err, ErrInvalidSuggestion):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "提交建议失败，请稍后重试"})
		}
		return
	}

	c.JSON(http.StatusCreated, formatFeature(newFeature))
}

// Retire 处理下线一条建议的请求
func Retire(c *gin.Context) {
	voterID := c.GetString(user.VoterIDKey)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的建议ID"})
		return
	}

	if err := RetireFeature(uint(id), voterID); err != nil {
		switch {
		case errors.Is(err, user.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.Is(err, ErrFeatureNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrFeatureDeleted):
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		case errors.Is(err, ErrNotFeatureOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "下线建议失败，请稍后重试"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "建议已下线"})
}

// GetCategories 返回可用的分类列表
func GetCategories(c *gin.Context) {
	categories, err := ListCategories(database.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取分类列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
