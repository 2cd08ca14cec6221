package v1

import (
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/routing"
)

// CreateRequestToIncidentModel преобразует DTO создания в доменную модель
func CreateRequestToIncidentModel(dto CreateIncidentRequest) *models.Incident {
	return &models.Incident{
		Type:        models.IncidentType(dto.Type),
		Severity:    dto.Severity,
		Description: dto.Description,
		Latitude:    *dto.Location.Lat,
		Longitude:   *dto.Location.Lng,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	lat, lng := model.Latitude, model.Longitude
	return &IncidentResponse{
		ID:                 model.ID,
		Type:               string(model.Type),
		Severity:           model.Severity,
		Status:             string(model.Status),
		Location:           LocationDTO{Lat: &lat, Lng: &lng},
		Description:        model.Description,
		Reporter:           model.Reporter,
		ReporterID:         model.ReporterID,
		Verified:           model.Verified,
		VerifiedBy:         model.VerifiedBy,
		VerifiedAt:         model.VerifiedAt,
		AssignedTo:         model.AssignedTo,
		AssignedAt:         model.AssignedAt,
		AssignedVolunteers: model.AssignedVolunteers,
		ResolvedAt:         model.ResolvedAt,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// ModelToNoteResponse преобразует заметку инцидента в DTO
func ModelToNoteResponse(note *models.IncidentNote) *NoteResponse {
	return &NoteResponse{
		ID:         note.ID,
		IncidentID: note.IncidentID,
		AuthorID:   note.AuthorID,
		Note:       note.Note,
		AddedAt:    note.AddedAt,
	}
}

// ModelsToNoteResponses преобразует слайс заметок в слайс DTO
func ModelsToNoteResponses(notes []*models.IncidentNote) []*NoteResponse {
	responses := make([]*NoteResponse, len(notes))
	for i, note := range notes {
		responses[i] = ModelToNoteResponse(note)
	}
	return responses
}

// ModelToUserResponse преобразует пользователя в DTO (без токена)
func ModelToUserResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Role:      string(user.Role),
		Status:    string(user.Status),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if user.Latitude != nil && user.Longitude != nil {
		resp.Location = &LocationDTO{Lat: user.Latitude, Lng: user.Longitude}
	}
	return resp
}

// ModelsToUserResponses преобразует слайс пользователей в слайс DTO
func ModelsToUserResponses(users []*models.User) []*UserResponse {
	responses := make([]*UserResponse, len(users))
	for i, user := range users {
		responses[i] = ModelToUserResponse(user)
	}
	return responses
}

// RouteToResponse преобразует маршрут в DTO
func RouteToResponse(route *routing.Route) *RouteResponse {
	path := make([]LocationDTO, len(route.Points))
	for i := range route.Points {
		lat, lng := route.Points[i].Lat, route.Points[i].Lng
		path[i] = LocationDTO{Lat: &lat, Lng: &lng}
	}
	return &RouteResponse{
		Path:       path,
		DistanceKm: route.DistanceKm,
	}
}
