package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/shenikar/disaster_response_system/internal/models"
)

// RegisterRoutes регистрирует все маршруты API v1.
// Все маршруты, кроме health-check, требуют аутентификации по API-токену.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.Use(RateLimitMiddleware(h.cfg.RateLimitRPS))

	// Маршрут Health-check (без аутентификации)
	api.GET("/system/health", h.healthCheck)

	authed := api.Group("")
	authed.Use(AuthMiddleware(h.userService, h.logger))

	// Маршруты для управления инцидентами
	incidents := authed.Group("/incidents")
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/nearby", h.nearbyIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.PUT("/:id", h.updateIncident)
		incidents.DELETE("/:id", h.deleteIncident)
		incidents.POST("/:id/notes", h.addIncidentNote)
		incidents.GET("/:id/notes", h.listIncidentNotes)
	}

	// Административные маршруты
	admin := authed.Group("/admin")
	admin.Use(RequireRole(models.RoleAdmin, h.logger))
	{
		admin.GET("/stats", h.getStats)
		admin.POST("/verify-incident/:id", h.verifyIncident)
		admin.POST("/reject-incident/:id", h.rejectIncident)
		admin.POST("/assign-incident/:id", h.assignIncident)
		admin.PUT("/incidents/:id/location", h.correctIncidentLocation)
		admin.POST("/users", h.createUser)
		admin.PUT("/users/:id/role", h.updateUserRole)
		admin.PUT("/users/:id/status", h.updateUserStatus)
		admin.PUT("/volunteers/:id/location", h.updateVolunteerLocation)
	}

	// Маршруты волонтеров
	volunteers := authed.Group("/volunteers")
	{
		volunteers.GET("", h.listVolunteers)

		tasks := volunteers.Group("")
		tasks.Use(RequireRole(models.RoleVolunteer, h.logger))
		{
			tasks.GET("/available-tasks", h.availableTasks)
			tasks.GET("/my-tasks", h.myTasks)
			tasks.POST("/assign-task/:id", h.assignTask)
			tasks.POST("/complete-task/:id", h.completeTask)
			tasks.POST("/unassign-task/:id", h.unassignTask)
			tasks.PUT("/update-location", h.updateOwnLocation)
			tasks.GET("/route", h.getRoute)
		}
	}
}
