package api

import "github.com/gin-gonic/gin"

// SetupRouter builds the HTTP surface over the core services.
func SetupRouter(h *Handler) *gin.Engine {
	router := gin.Default()

	api := router.Group("/api")
	{
		tasks := api.Group("/tasks")
		{
			tasks.GET("/:id", h.getTask)
			tasks.PUT("/:id", h.updateTask)
			tasks.DELETE("/:id", h.deleteTask)
			tasks.POST("/:id/toggle", h.toggleTask)
			tasks.POST("/:id/archive", h.archiveTask)
			tasks.POST("/:id/unarchive", h.unarchiveTask)
			tasks.POST("/:id/start", h.startTask)
			tasks.PUT("/:id/status", h.updateTaskStatus)
			tasks.GET("/:id/subtasks", h.listSubtasks)
			tasks.GET("/:id/timer", h.taskTimerHistory)
		}

		api.PATCH("/subtasks/:id", h.updateSubtask)
		api.GET("/workspaces/:workspaceID/tasks", h.listTasks)

		users := api.Group("/users/:userID")
		{
			users.POST("/tasks", h.createTask)
			users.GET("/progress", h.getProgress)
			users.GET("/completed", h.listCompleted)
			users.GET("/stats", h.completedStats)
			users.POST("/reconcile", h.reconcile)
			users.GET("/timer", h.timerHistory)
			users.GET("/timer/stats", h.timerStats)
		}

		api.POST("/timer/stop", h.stopTimer)
	}

	return router
}
