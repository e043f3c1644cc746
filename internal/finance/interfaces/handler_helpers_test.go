package interfaces

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sebuszqo/FinanceHub/internal/finance/application"
	"github.com/sebuszqo/FinanceHub/internal/finance/infrastructure"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
	"github.com/sebuszqo/FinanceHub/internal/user"
	"github.com/stretchr/testify/require"
)

const testUserID = "11111111-1111-1111-1111-111111111111"

type testServer struct {
	mux          *http.ServeMux
	categories   *infrastructure.MockCategoryRepository
	transactions *infrastructure.MockTransactionRepository
}

// withUser stands in for the session middleware.
func withUser(userID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != "" {
			r = r.WithContext(user.NewContext(r.Context(), &user.User{ID: userID, IsActive: true}))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestServer(userID string) *testServer {
	categories := infrastructure.NewMockCategoryRepository()
	transactions := infrastructure.NewMockTransactionRepository(categories)
	categoryService := application.NewCategoryService(categories, transactions)
	transactionService := application.NewTransactionService(transactions, categoryService)
	summaryService := application.NewSummaryService(transactions)

	ch := NewCategoryHandler(categoryService, httpx.RespondJSON, httpx.RespondError)
	th := NewTransactionHandler(transactionService, summaryService, httpx.RespondJSON, httpx.RespondError)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/categories", ch.GetCategories)
	mux.HandleFunc("POST /api/categories", ch.CreateCategory)
	mux.Handle("PUT /api/categories/{id}", ch.ValidatePathParamsMiddleware(http.HandlerFunc(ch.UpdateCategory)))
	mux.Handle("DELETE /api/categories/{id}", ch.ValidatePathParamsMiddleware(http.HandlerFunc(ch.DeleteCategory)))
	mux.HandleFunc("GET /api/transactions", th.GetTransactions)
	mux.HandleFunc("POST /api/transactions", th.CreateTransaction)
	mux.HandleFunc("GET /api/transactions/summary", th.GetSummary)
	mux.Handle("GET /api/transactions/{id}", th.ValidatePathParamsMiddleware(http.HandlerFunc(th.GetTransaction)))
	mux.Handle("PUT /api/transactions/{id}", th.ValidatePathParamsMiddleware(http.HandlerFunc(th.UpdateTransaction)))
	mux.Handle("DELETE /api/transactions/{id}", th.ValidatePathParamsMiddleware(http.HandlerFunc(th.DeleteTransaction)))

	root := http.NewServeMux()
	root.Handle("/", withUser(userID, mux))
	return &testServer{mux: root, categories: categories, transactions: transactions}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w, response
}

func data(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "expected data object in %v", response)
	return d
}

func (s *testServer) createCategory(t *testing.T, name, kind string) string {
	t.Helper()
	w, response := s.do(t, http.MethodPost, "/api/categories", map[string]string{"name": name, "type": kind})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return data(t, response)["category"].(map[string]interface{})["id"].(string)
}
