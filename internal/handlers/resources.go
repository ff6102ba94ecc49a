package handlers

import (
	"encoding/json"
	"net/http"

	"booking-system/internal/logger"
	"booking-system/internal/models"
)

const resourcesPathPrefix = "/api/resources/"

// ResourceHandler обрабатывает запросы к реестру ресурсов.
type ResourceHandler struct {
	resourceService ResourceService
	log             *logger.Logger
}

// NewResourceHandler создаёт обработчик ресурсов.
func NewResourceHandler(resourceService ResourceService, log *logger.Logger) *ResourceHandler {
	return &ResourceHandler{
		resourceService: resourceService,
		log:             log,
	}
}

// CreateResource создаёт ресурс с конфигурацией цены.
func (h *ResourceHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.CreateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.resourceService.CreateResource(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create resource")
		return
	}

	writeJSONResponse(w, http.StatusCreated, res)
}

// ListResources возвращает страницу ресурсов.
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, offset := parsePagination(r)
	resources, err := h.resourceService.ListResources(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list resources")
		return
	}
	if resources == nil {
		resources = []models.Resource{}
	}

	writeJSONResponse(w, http.StatusOK, resources)
}

// GetResource возвращает ресурс по ID.
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := extractUUIDFromPath(r.URL.Path, resourcesPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid resource ID")
		return
	}

	res, err := h.resourceService.GetResource(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get resource")
		return
	}

	writeJSONResponse(w, http.StatusOK, res)
}

// UpdateResource обновляет ресурс и его тариф.
func (h *ResourceHandler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := extractUUIDFromPath(r.URL.Path, resourcesPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid resource ID")
		return
	}

	var req models.UpdateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.resourceService.UpdateResource(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update resource")
		return
	}

	writeJSONResponse(w, http.StatusOK, res)
}

// DeleteResource удаляет ресурс.
func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := extractUUIDFromPath(r.URL.Path, resourcesPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid resource ID")
		return
	}

	if err := h.resourceService.DeleteResource(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete resource")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Resource deleted"})
}
