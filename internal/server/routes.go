package server

import "github.com/gin-gonic/gin"

// registerRoutes wires the versioned API plus the liveness endpoint.
func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/healthz", s.health)

	v1 := router.Group("/api/v1")
	v1.Use(logMiddleware())
	v1.Use(errorHandleMiddleware())

	v1.GET("/status", s.status)
	v1.POST("/log", s.setLogLevel)

	tasks := v1.Group("/tasks")
	tasks.POST("", s.createTask)
	tasks.GET("", s.listTasks)
	tasks.GET("/:id", s.getTask)

	scripts := v1.Group("/scripts")
	scripts.GET("", s.listScripts)
	scripts.GET("/:name", s.downloadScript)

	artifacts := v1.Group("/artifacts")
	artifacts.GET("", s.listArtifacts)
	artifacts.GET("/:name", s.downloadArtifact)
}
