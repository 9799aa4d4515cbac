package api

import (
	"github.com/describly/feature-board-backend/internal/feature"
	"github.com/describly/feature-board-backend/internal/stats"
	"github.com/describly/feature-board-backend/internal/user"
	"github.com/describly/feature-board-backend/internal/vote"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// 建议相关的路由组
		featureRoutes := api.Group("/features")
		{
			featureRoutes.GET("/ranking", user.LoadVoterMiddleware(), vote.GetRanking)
			featureRoutes.GET("/categories", feature.GetCategories)
			featureRoutes.GET("/:id", user.LoadVoterMiddleware(), vote.GetFeatureByID)
			featureRoutes.POST("", user.LoadVoterMiddleware(), feature.Suggest)
			featureRoutes.DELETE("/:id", user.LoadVoterMiddleware(), feature.Retire)

			// 投票相关的路由
			featureRoutes.POST("/:id/vote", user.LoadVoterMiddleware(), vote.SubmitVote)
		}

		// 看板报告
		api.GET("/board/report", stats.GetReport)

		// 身份相关的路由，访问即颁发签名Cookie
		api.GET("/user/identity", user.EnsureVoterCookieMiddleware(), user.GetIdentity)
	}
}
