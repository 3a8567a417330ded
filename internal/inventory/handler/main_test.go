package handler_test

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/events"
	"github.com/stoklog/stoklog-backend/internal/inventory/handler"
	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/internal/inventory/service"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/httputil"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/tenant"
	"github.com/stoklog/stoklog-backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

var today = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()
	suite.Cleanup(ctx)
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

// newHandlers wires the handlers over db. A nil db yields handlers whose
// services must never be reached.
func newHandlers(db *database.DB) *handler.Handlers {
	log := logger.Nop()

	itemRepo := repository.NewItemRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	guard := repository.NewResourceGuard(db)
	publisher := events.NewWithPublisher(testutil.NewMockPublisher(), log)

	stock := service.NewStockService(db, itemRepo, batchRepo, repository.NewTransactionRepository(db), guard, publisher, nil, log)
	stock.SetClock(func() time.Time { return today })

	generator := service.NewAlertGenerator(db, repository.NewWarehouseRepository(db), itemRepo, batchRepo, alertRepo,
		publisher, nil, log, service.GeneratorOptions{})
	generator.SetClock(func() time.Time { return today })

	items := service.NewItemService(itemRepo, batchRepo, repository.NewCategoryRepository(db), alertRepo, log)
	opname := service.NewOpnameService(db, itemRepo, batchRepo, repository.NewOpnameRepository(db), guard,
		domain.OpnameOverwrite, publisher, nil, log)

	return &handler.Handlers{
		Items:  handler.NewItemHandler(items, log),
		Stock:  handler.NewStockHandler(stock, log),
		Opname: handler.NewOpnameHandler(opname, log),
		Alerts: handler.NewAlertHandler(generator, log),
	}
}

func newRouter(h *handler.Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(httputil.TenantMiddleware)
	h.Routes(r)
	return r
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *httputil.ErrorBody `json:"error"`
	Meta    *httputil.Meta      `json:"meta"`
}

// call sends a scoped request and decodes the envelope
func call(t *testing.T, router http.Handler, scope tenant.Scope, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := testutil.WithScopeHeaders(testutil.NewHTTPRequest(method, path, body), scope)
	rr := testutil.ExecuteRequest(router, req)

	var env envelope
	if rr.Code != http.StatusNoContent {
		testutil.ParseJSONBody(t, rr, &env)
	}
	return rr, env
}

func decodeData(t *testing.T, env envelope, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target), "data: %s", string(env.Data))
}
