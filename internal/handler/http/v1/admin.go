package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/disaster_response_system/internal/models"
)

// @Summary Get admin dashboard statistics
// @Description Get incident and user totals with per-status, per-type and per-severity breakdowns.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} Response{data=models.IncidentStats}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Admin role required"
// @Failure 500 {object} Response "Internal server error"
// @Router /admin/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.incidentService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// @Summary Verify an incident
// @Description Confirm the incident is genuine and move it into the assignable pool.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} Response{data=IncidentResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Admin role required"
// @Failure 404 {object} Response "Incident not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /admin/verify-incident/{id} [post]
func (h *Handler) verifyIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "verifyIncident").WithField("id", id)
	actor := currentUser(c)

	incident, err := h.incidentService.VerifyIncident(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToIncidentResponse(incident)})
}

// @Summary Reject an incident
// @Description Reject and permanently delete a reported incident.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Admin role required"
// @Failure 404 {object} Response "Incident not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /admin/reject-incident/{id} [post]
func (h *Handler) rejectIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "rejectIncident").WithField("id", id)
	actor := currentUser(c)

	if err := h.incidentService.RejectIncident(c.Request.Context(), id, actor); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "Incident rejected and deleted"})
}

// @Summary Assign an incident to a volunteer
// @Description Admin-directed assignment of an available incident to a chosen volunteer.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param assignment body AssignIncidentRequest true "Assignment request"
// @Success 200 {object} Response{data=IncidentResponse}
// @Failure 400 {object} Response "Invalid request body or target is not an active volunteer"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Admin role required"
// @Failure 404 {object} Response "Incident or volunteer not found"
// @Failure 409 {object} Response "Incident is not available for assignment"
// @Failure 500 {object} Response "Internal server error"
// @Router /admin/assign-incident/{id} [post]
func (h *Handler) assignIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "assignIncident").WithField("id", id)
	actor := currentUser(c)

	var input AssignIncidentRequest
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

	incident, err := h.dispatchService.Assign(c.Request.Context(), id, input.VolunteerID, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToIncidentResponse(incident)})
}

// @Summary Correct incident location
// @Description Explicit audited correction of an incident's coordinates.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param location body UpdateLocationRequest true "New coordinates"
// @Success 200 {object} Response{data=IncidentResponse}
// @Failure 400 {object} Response "Invalid coordinates"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Admin role required"
// @Failure 404 {object} Response "Incident not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /admin/incidents/{id}/location [put]
func (h *Handler) correctIncidentLocation(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "correctIncidentLocation").WithField("id", id)
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

	incident, err := h.incidentService.CorrectLocation(c.Request.Context(), id, *input.Lat, *input.Lng, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToIncidentResponse(incident)})
}

// @Summary Create a user
// @Description Create a user account and issue its API token. The token is returned once.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param user body CreateUserRequest true "User creation request"
// @Success 201 {object} Response{data=UserResponse}
// @Failure 400 {object} Response "Invalid request body"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Admin role required"
// @Failure 500 {object} Response "Internal server error"
// @Router /admin/users [post]
func (h *Handler) createUser(c *gin.Context) {
	log := h.logger.WithField("method", "createUser")
	actor := currentUser(c)

	var input CreateUserRequest
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

	user, err := h.userService.CreateUser(c.Request.Context(), input.Name, models.Role(input.Role), actor)
	if err != nil {
		respondError(c, log, err)
		return
	}

	resp := ModelToUserResponse(user)
	resp.APIToken = user.APIToken // токен отдаем единственный раз при создании
	c.JSON(http.StatusCreated, Response{Success: true, Data: resp})
}

// @Summary Update user role
// @Description Change the role of a user account.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "User ID"
// @Param role body UpdateRoleRequest true "Role update request"
// @Success 200 {object} Response{data=UserResponse}
// @Failure 400 {object} Response "Invalid role"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Admin role required"
// @Failure 404 {object} Response "User not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /admin/users/{id}/role [put]
func (h *Handler) updateUserRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid user ID"})
		return
	}
	log := h.logger.WithField("method", "updateUserRole").WithField("user_id", userID)
	actor := currentUser(c)

	var input UpdateRoleRequest
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

	user, err := h.userService.UpdateRole(c.Request.Context(), userID, models.Role(input.Role), actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToUserResponse(user)})
}

// @Summary Update user account status
// @Description Activate, deactivate or suspend a user account.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "User ID"
// @Param status body UpdateUserStatusRequest true "Status update request"
// @Success 200 {object} Response{data=UserResponse}
// @Failure 400 {object} Response "Invalid status"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Admin role required"
// @Failure 404 {object} Response "User not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /admin/users/{id}/status [put]
func (h *Handler) updateUserStatus(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid user ID"})
		return
	}
	log := h.logger.WithField("method", "updateUserStatus").WithField("user_id", userID)
	actor := currentUser(c)

	var input UpdateUserStatusRequest
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

	user, err := h.userService.UpdateStatus(c.Request.Context(), userID, models.UserStatus(input.Status), actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToUserResponse(user)})
}

// @Summary Update volunteer location (admin)
// @Description Set the current location of a chosen volunteer.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Volunteer ID"
// @Param location body UpdateLocationRequest true "New coordinates"
// @Success 200 {object} Response{data=UserResponse}
// @Failure 400 {object} Response "Invalid coordinates or user is not a volunteer"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Admin role required"
// @Failure 404 {object} Response "Volunteer not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /admin/volunteers/{id}/location [put]
func (h *Handler) updateVolunteerLocation(c *gin.Context) {
	volunteerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid volunteer ID"})
		return
	}
	log := h.logger.WithField("method", "updateVolunteerLocation").WithField("volunteer_id", volunteerID)
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

	user, err := h.userService.UpdateLocation(c.Request.Context(), volunteerID, *input.Lat, *input.Lng, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToUserResponse(user)})
}
