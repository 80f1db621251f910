package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	storagemocks "legacy-sync/internal/storage/mocks"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		mockSetup  func(*storagemocks.MockRecordStore)
		wantStatus int
		wantHealth string
		wantCheck  string
	}{
		{
			name:   "healthy",
			method: http.MethodGet,
			mockSetup: func(m *storagemocks.MockRecordStore) {
				m.EXPECT().Ping(gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
			wantCheck:  "ok",
		},
		{
			name:   "record store down",
			method: http.MethodGet,
			mockSetup: func(m *storagemocks.MockRecordStore) {
				m.EXPECT().Ping(gomock.Any()).Return(errors.New("database is locked"))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
			wantCheck:  "error",
		},
		{
			name:       "method not allowed",
			method:     http.MethodPost,
			mockSetup:  func(m *storagemocks.MockRecordStore) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			records := storagemocks.NewMockRecordStore(ctrl)
			tt.mockSetup(records)

			handler := NewHealthHandler(records)
			req := httptest.NewRequest(tt.method, "/api/health", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantHealth == "" {
				return
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantHealth)
			}
			if resp.Checks["record_store"] != tt.wantCheck {
				t.Errorf("Checks[record_store] = %q, want %q", resp.Checks["record_store"], tt.wantCheck)
			}
			if tt.wantHealth == "unhealthy" && len(resp.Issues) == 0 {
				t.Error("unhealthy response should list issues")
			}
		})
	}
}
