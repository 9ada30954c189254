package routes

import (
	"chatbot/controllers"

	"github.com/gin-gonic/gin"
)

func SetupRouter(router *gin.Engine, chat *controllers.ChatController) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 質問を送信
	router.POST("/", chat.AskQuestion)

	// 会話を取得
	router.GET("/conversation/:conversation_id", chat.GetConversation)
}
