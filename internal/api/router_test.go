package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rentwise/rentwise/internal/api/cron"
	"github.com/rentwise/rentwise/internal/api/dto"
	v1 "github.com/rentwise/rentwise/internal/api/v1"
	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/domain/bill"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/testutil"
	"github.com/rentwise/rentwise/internal/types"
	"github.com/stretchr/testify/suite"
)

type recordingService struct {
	calls   int
	horizon int
	orgID   string
	userID  string
	result  *bill.GenerationResult
	err     error
}

func (r *recordingService) GenerateRecurringBills(ctx context.Context, daysHorizon int, orgID string) (*bill.GenerationResult, error) {
	r.calls++
	r.horizon = daysHorizon
	r.orgID = orgID
	r.userID = types.GetUserID(ctx)
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type RouterSuite struct {
	suite.Suite
	service *recordingService
	db      *testutil.MockPostgresClient
	router  *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := config.GetDefaultConfig()
	cfg.Server.TriggerRatePerMinute = 0
	s.router = s.newRouter(cfg)
}

func (s *RouterSuite) newRouter(cfg *config.Configuration) *gin.Engine {
	log := logger.NewNoopLogger()
	s.service = &recordingService{
		result: &bill.GenerationResult{Generated: 2, Skipped: 1, OrgIDs: []string{"org_1"}},
	}
	s.db = testutil.NewMockPostgresClient(log)
	return NewRouter(Handlers{
		Health:             v1.NewHealthHandler(s.db, log),
		CronRecurringBills: cron.NewRecurringBillHandler(s.service, cfg, log),
	}, cfg)
}

func (s *RouterSuite) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) TestGenerateWithoutBodyUsesConfiguredHorizon() {
	w := s.do(http.MethodPost, "/v1/cron/recurring-bills/generate", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.GenerateRecurringBillsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(2, resp.Generated)
	s.Equal(1, resp.Skipped)
	s.Equal([]string{"org_1"}, resp.OrgIDs)

	s.Equal(1, s.service.calls)
	s.Equal(60, s.service.horizon)
	s.Empty(s.service.orgID)
	s.Equal(types.SystemUserID, s.service.userID)
	s.NotEmpty(w.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestGenerateWithBody() {
	w := s.do(http.MethodPost, "/v1/cron/recurring-bills/generate", []byte(`{"days_horizon": 30, "org_id": "org_1"}`))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(30, s.service.horizon)
	s.Equal("org_1", s.service.orgID)
}

func (s *RouterSuite) TestEmptyOrgIDsRenderAsArray() {
	s.service.result = &bill.GenerationResult{}
	w := s.do(http.MethodPost, "/v1/cron/recurring-bills/generate", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"org_ids":[]`)
}

func (s *RouterSuite) TestGenerateRejectsBadInput() {
	tests := []struct {
		name string
		body string
	}{
		{name: "horizon too large", body: `{"days_horizon": 500}`},
		{name: "negative horizon", body: `{"days_horizon": -1}`},
		{name: "malformed json", body: `{"days_horizon":`},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, "/v1/cron/recurring-bills/generate", []byte(tt.body))
			s.Equal(http.StatusBadRequest, w.Code)

			var resp ierr.ErrorResponse
			s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
			s.False(resp.Success)
			s.Equal(ierr.ErrCodeValidation, resp.Error.Code)
		})
	}
	s.Zero(s.service.calls)
}

func (s *RouterSuite) TestGenerateFailure() {
	s.service.err = ierr.NewError("list failed").
		WithHint("Failed to list recurring templates").
		Mark(ierr.ErrDatabase)

	w := s.do(http.MethodPost, "/v1/cron/recurring-bills/generate", nil)
	s.Equal(http.StatusInternalServerError, w.Code)

	var resp ierr.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(ierr.ErrCodeDatabase, resp.Error.Code)
	s.Equal("Failed to list recurring templates", resp.Error.Display)
}

func (s *RouterSuite) TestTriggerIsRateLimited() {
	cfg := config.GetDefaultConfig()
	cfg.Server.TriggerRatePerMinute = 1
	s.router = s.newRouter(cfg)

	w := s.do(http.MethodPost, "/v1/cron/recurring-bills/generate", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/v1/cron/recurring-bills/generate", nil)
	s.Equal(http.StatusTooManyRequests, w.Code)

	var resp ierr.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(ierr.ErrCodeRateLimited, resp.Error.Code)
	s.Equal(1, s.service.calls)

	// health is not limited
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health", nil).Code)
}

func (s *RouterSuite) TestRequestIDIsEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(types.HeaderRequestID, "req_123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal("req_123", w.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())

	s.db.SetPingError(ierr.NewError("connection refused").Mark(ierr.ErrDatabase))
	w = s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}
