package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"legacy-sync/internal/handlers/mocks"
	"legacy-sync/internal/migrate"
	"legacy-sync/internal/storage"
	storagemocks "legacy-sync/internal/storage/mocks"
)

func TestNewRouter(t *testing.T) {
	ctrl := gomock.NewController(t)

	router := NewRouter(&Deps{
		Migrations: mocks.NewMockMigrationService(ctrl),
		Records:    storagemocks.NewMockRecordStore(ctrl),
	})

	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		setup      func(*mocks.MockMigrationService, *storagemocks.MockRecordStore)
		wantStatus int
	}{
		{
			name:   "GET /api/health",
			method: http.MethodGet,
			path:   "/api/health",
			setup: func(_ *mocks.MockMigrationService, r *storagemocks.MockRecordStore) {
				r.EXPECT().Ping(gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "POST /api/migrations",
			method: http.MethodPost,
			path:   "/api/migrations",
			setup: func(m *mocks.MockMigrationService, _ *storagemocks.MockRecordStore) {
				m.EXPECT().Start(gomock.Any()).Return("run-1", nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:   "POST /api/migrations while running",
			method: http.MethodPost,
			path:   "/api/migrations",
			setup: func(m *mocks.MockMigrationService, _ *storagemocks.MockRecordStore) {
				m.EXPECT().Start(gomock.Any()).Return("", migrate.ErrRunInProgress)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:   "GET /api/migrations/latest",
			method: http.MethodGet,
			path:   "/api/migrations/latest",
			setup: func(m *mocks.MockMigrationService, _ *storagemocks.MockRecordStore) {
				m.EXPECT().Latest(gomock.Any()).Return(nil, storage.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "GET /api/records/{collection}/{id}",
			method: http.MethodGet,
			path:   "/api/records/posts/3",
			setup: func(_ *mocks.MockMigrationService, r *storagemocks.MockRecordStore) {
				r.EXPECT().Get(gomock.Any(), "posts", int64(3)).Return(&storage.Record{ID: 3}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET /api/migrations method not allowed",
			method:     http.MethodGet,
			path:       "/api/migrations",
			setup:      func(*mocks.MockMigrationService, *storagemocks.MockRecordStore) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/chat",
			setup:      func(*mocks.MockMigrationService, *storagemocks.MockRecordStore) {},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			migrations := mocks.NewMockMigrationService(ctrl)
			records := storagemocks.NewMockRecordStore(ctrl)
			tt.setup(migrations, records)

			router := NewRouter(&Deps{Migrations: migrations, Records: records})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := storagemocks.NewMockRecordStore(ctrl)
	records.EXPECT().Ping(gomock.Any()).Return(nil)

	router := NewRouter(&Deps{
		Migrations: mocks.NewMockMigrationService(ctrl),
		Records:    records,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// Check CORS headers are present
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}
