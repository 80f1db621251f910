package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"legacy-sync/internal/storage"
	storagemocks "legacy-sync/internal/storage/mocks"
)

func TestRecordHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		mockSetup  func(*storagemocks.MockRecordStore)
		wantStatus int
		wantTitle  string
	}{
		{
			name: "found",
			path: "/api/records/posts/42",
			mockSetup: func(m *storagemocks.MockRecordStore) {
				m.EXPECT().Get(gomock.Any(), "posts", int64(42)).
					Return(&storage.Record{ID: 42, Title: "Hello"}, nil)
			},
			wantStatus: http.StatusOK,
			wantTitle:  "Hello",
		},
		{
			name: "not found",
			path: "/api/records/pages/7",
			mockSetup: func(m *storagemocks.MockRecordStore) {
				m.EXPECT().Get(gomock.Any(), "pages", int64(7)).Return(nil, storage.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid id",
			path:       "/api/records/posts/abc",
			mockSetup:  func(m *storagemocks.MockRecordStore) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "zero id",
			path:       "/api/records/posts/0",
			mockSetup:  func(m *storagemocks.MockRecordStore) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store failure",
			path: "/api/records/posts/1",
			mockSetup: func(m *storagemocks.MockRecordStore) {
				m.EXPECT().Get(gomock.Any(), "posts", int64(1)).Return(nil, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			records := storagemocks.NewMockRecordStore(ctrl)
			tt.mockSetup(records)

			r := chi.NewRouter()
			r.Method(http.MethodGet, "/api/records/{collection}/{id}", NewRecordHandler(records))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantTitle == "" {
				return
			}
			var got storage.Record
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
		})
	}
}
