package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"booking-system/internal/apperror"
	"booking-system/internal/models"

	"github.com/google/uuid"
)

type stubResourceService struct {
	resource *models.Resource
	list     []models.Resource
	err      error
	lastID   uuid.UUID
	created  *models.CreateResourceRequest
}

func (s *stubResourceService) CreateResource(ctx context.Context, req *models.CreateResourceRequest) (*models.Resource, error) {
	s.created = req
	return s.resource, s.err
}
func (s *stubResourceService) GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	s.lastID = id
	return s.resource, s.err
}
func (s *stubResourceService) ListResources(ctx context.Context, limit, offset int) ([]models.Resource, error) {
	return s.list, s.err
}
func (s *stubResourceService) UpdateResource(ctx context.Context, id uuid.UUID, req *models.UpdateResourceRequest) (*models.Resource, error) {
	s.lastID = id
	return s.resource, s.err
}
func (s *stubResourceService) DeleteResource(ctx context.Context, id uuid.UUID) error {
	s.lastID = id
	return s.err
}

func testResource() *models.Resource {
	return &models.Resource{
		ID:      uuid.New(),
		Name:    "Studio",
		Pricing: models.PricingConfig{BasePrice: 500, PriceType: models.PriceTypeHourly},
	}
}

func TestResourceHandler_Create(t *testing.T) {
	stub := &stubResourceService{resource: testResource()}
	handler := NewResourceHandler(stub, newTestLogger())

	body := bytes.NewBufferString(`{"name":"Studio","rules":[{"type":"base_rate","price":500},{"type":"weekend","multiplier":1.2}]}`)
	rr := httptest.NewRecorder()
	handler.CreateResource(rr, httptest.NewRequest(http.MethodPost, "/api/resources", body))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if len(stub.created.Rules) != 2 || stub.created.Rules[1].Type != models.RuleWeekend {
		t.Fatalf("rules not decoded: %+v", stub.created.Rules)
	}
}

func TestResourceHandler_CreateValidation(t *testing.T) {
	handler := NewResourceHandler(&stubResourceService{err: apperror.Validation("name is required", nil)}, newTestLogger())

	rr := httptest.NewRecorder()
	handler.CreateResource(rr, httptest.NewRequest(http.MethodPost, "/api/resources", bytes.NewBufferString(`{}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestResourceHandler_Get(t *testing.T) {
	res := testResource()
	stub := &stubResourceService{resource: res}
	handler := NewResourceHandler(stub, newTestLogger())

	rr := httptest.NewRecorder()
	handler.GetResource(rr, httptest.NewRequest(http.MethodGet, "/api/resources/"+res.ID.String(), nil))
	if rr.Code != http.StatusOK || stub.lastID != res.ID {
		t.Fatalf("expected 200 for %s, got %d (%s)", res.ID, rr.Code, stub.lastID)
	}

	var got models.Resource
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil || got.Pricing.BasePrice != 500 {
		t.Fatalf("unexpected body: %+v %v", got, err)
	}

	rr = httptest.NewRecorder()
	handler.GetResource(rr, httptest.NewRequest(http.MethodGet, "/api/resources/not-a-uuid", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rr.Code)
	}
}

func TestResourceHandler_GetNotFound(t *testing.T) {
	handler := NewResourceHandler(&stubResourceService{err: apperror.NotFound("resource not found", nil)}, newTestLogger())

	rr := httptest.NewRecorder()
	handler.GetResource(rr, httptest.NewRequest(http.MethodGet, "/api/resources/"+uuid.NewString(), nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestResourceHandler_UpdateListDelete(t *testing.T) {
	res := testResource()
	stub := &stubResourceService{resource: res, list: []models.Resource{*res}}
	handler := NewResourceHandler(stub, newTestLogger())

	rr := httptest.NewRecorder()
	handler.UpdateResource(rr, httptest.NewRequest(http.MethodPut, "/api/resources/"+res.ID.String(), bytes.NewBufferString(`{"pricing":{"base_price":700}}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ListResources(rr, httptest.NewRequest(http.MethodGet, "/api/resources", nil))
	var list []models.Resource
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected list: %v %v", list, err)
	}

	rr = httptest.NewRecorder()
	handler.DeleteResource(rr, httptest.NewRequest(http.MethodDelete, "/api/resources/"+res.ID.String(), nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.UpdateResource(rr, httptest.NewRequest(http.MethodPost, "/api/resources/"+res.ID.String(), nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
