package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/pkg/geo"
)

// @Summary Get all volunteers
// @Description Get the list of all volunteer accounts.
// @Tags Volunteers
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} Response{data=[]UserResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 500 {object} Response "Internal server error"
// @Router /volunteers [get]
func (h *Handler) listVolunteers(c *gin.Context) {
	log := h.logger.WithField("method", "listVolunteers")

	volunteers, err := h.userService.ListVolunteers(c.Request.Context())
	if err != nil {
		respondError(c, log, err)
		return
	}
	count := len(volunteers)
	c.JSON(http.StatusOK, Response{Success: true, Count: &count, Data: ModelsToUserResponses(volunteers)})
}

// @Summary Get available tasks
// @Description Get verified incidents waiting for a volunteer.
// @Tags Volunteers
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} Response{data=[]IncidentResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Volunteer role required"
// @Failure 500 {object} Response "Internal server error"
// @Router /volunteers/available-tasks [get]
func (h *Handler) availableTasks(c *gin.Context) {
	log := h.logger.WithField("method", "availableTasks")

	status := models.StatusAvailable
	verified := true
	filter := models.IncidentFilter{Status: &status, Verified: &verified, OrderBySeverity: true}

	tasks, err := h.incidentService.ListIncidents(c.Request.Context(), filter, 1, 100)
	if err != nil {
		respondError(c, log, err)
		return
	}
	count := len(tasks)
	c.JSON(http.StatusOK, Response{Success: true, Count: &count, Data: ModelsToIncidentResponses(tasks)})
}

// @Summary Get my tasks
// @Description Get incidents currently assigned to the calling volunteer.
// @Tags Volunteers
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} Response{data=[]IncidentResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Volunteer role required"
// @Failure 500 {object} Response "Internal server error"
// @Router /volunteers/my-tasks [get]
func (h *Handler) myTasks(c *gin.Context) {
	log := h.logger.WithField("method", "myTasks")
	actor := currentUser(c)

	tasks, err := h.incidentService.ListByAssignee(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, log, err)
		return
	}
	count := len(tasks)
	c.JSON(http.StatusOK, Response{Success: true, Count: &count, Data: ModelsToIncidentResponses(tasks)})
}

// @Summary Claim a task
// @Description Claim an available incident for the calling volunteer.
// @Tags Volunteers
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} Response{data=IncidentResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Volunteer role required"
// @Failure 404 {object} Response "Incident not found"
// @Failure 409 {object} Response "Incident is not available for assignment"
// @Failure 500 {object} Response "Internal server error"
// @Router /volunteers/assign-task/{id} [post]
func (h *Handler) assignTask(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "assignTask").WithField("id", id)
	actor := currentUser(c)

	incident, err := h.dispatchService.Claim(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToIncidentResponse(incident)})
}

// @Summary Complete a task
// @Description Mark an incident assigned to the calling volunteer as completed.
// @Tags Volunteers
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} Response{data=IncidentResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Task is not assigned to the caller"
// @Failure 404 {object} Response "Incident not found"
// @Failure 409 {object} Response "Incident is not in progress"
// @Failure 500 {object} Response "Internal server error"
// @Router /volunteers/complete-task/{id} [post]
func (h *Handler) completeTask(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "completeTask").WithField("id", id)
	actor := currentUser(c)

	incident, err := h.dispatchService.Complete(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToIncidentResponse(incident)})
}

// @Summary Release a task
// @Description Return an incident assigned to the calling volunteer back to the available pool.
// @Tags Volunteers
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} Response{data=IncidentResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Task is not assigned to the caller"
// @Failure 404 {object} Response "Incident not found"
// @Failure 409 {object} Response "Incident is not in progress"
// @Failure 500 {object} Response "Internal server error"
// @Router /volunteers/unassign-task/{id} [post]
func (h *Handler) unassignTask(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "unassignTask").WithField("id", id)
	actor := currentUser(c)

	incident, err := h.dispatchService.Release(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToIncidentResponse(incident), Message: "Task unassigned successfully"})
}

// @Summary Update own location
// @Description Update the calling volunteer's current location.
// @Tags Volunteers
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param location body UpdateLocationRequest true "New coordinates"
// @Success 200 {object} Response{data=UserResponse}
// @Failure 400 {object} Response "Invalid coordinates"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Volunteer role required"
// @Failure 500 {object} Response "Internal server error"
// @Router /volunteers/update-location [put]
func (h *Handler) updateOwnLocation(c *gin.Context) {
	log := h.logger.WithField("method", "updateOwnLocation")
	actor := currentUser(c)

	var input UpdateLocationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}

	user, err := h.userService.UpdateLocation(c.Request.Context(), actor.ID, *input.Lat, *input.Lng, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToUserResponse(user)})
}

// @Summary Get a travel route
// @Description Get a road route between two points. Falls back to a local shortest-path approximation.
// @Tags Volunteers
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param from_lat query number true "Start latitude"
// @Param from_lng query number true "Start longitude"
// @Param to_lat query number true "End latitude"
// @Param to_lng query number true "End longitude"
// @Success 200 {object} Response{data=RouteResponse}
// @Failure 400 {object} Response "Invalid coordinates"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Volunteer role required"
// @Failure 500 {object} Response "Internal server error"
// @Router /volunteers/route [get]
func (h *Handler) getRoute(c *gin.Context) {
	log := h.logger.WithField("method", "getRoute")

	fromLat, errFromLat := strconv.ParseFloat(c.Query("from_lat"), 64)
	fromLng, errFromLng := strconv.ParseFloat(c.Query("from_lng"), 64)
	toLat, errToLat := strconv.ParseFloat(c.Query("to_lat"), 64)
	toLng, errToLng := strconv.ParseFloat(c.Query("to_lng"), 64)
	if errFromLat != nil || errFromLng != nil || errToLat != nil || errToLng != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: "valid from and to coordinates are required"})
		return
	}

	start := geo.Point{Lat: fromLat, Lng: fromLng}
	end := geo.Point{Lat: toLat, Lng: toLng}

	route, err := h.routeAdvisor.GetRoute(c.Request.Context(), start, end)
	if err != nil {
		log.WithError(err).Warn("Failed to build route")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: RouteToResponse(route)})
}
