package testutil

import (
	"context"
	"time"

	"github.com/clubledger/clubledger/internal/cache"
	"github.com/clubledger/clubledger/internal/catalog"
	"github.com/clubledger/clubledger/internal/config"
	"github.com/clubledger/clubledger/internal/domain/invoice"
	"github.com/clubledger/clubledger/internal/idempotency"
	"github.com/clubledger/clubledger/internal/logger"
	"github.com/clubledger/clubledger/internal/postgres"
	"github.com/clubledger/clubledger/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the repository interfaces for testing
type Stores struct {
	InvoiceRepo invoice.Repository
}

// BaseServiceTestSuite provides common functionality for all service test
// suites: an authenticated context, in-memory stores, a recorder, the
// catalog and a mock postgres client.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	cache    cache.Cache
	recorder idempotency.Recorder
	catalog  catalog.Service
	db       postgres.IClient
	logger   *logger.Logger
	config   *config.Configuration
	now      time.Time
}

// SetupSuite initializes shared resources
func (s *BaseServiceTestSuite) SetupSuite() {
	s.config = config.GetDefaultConfig()
	s.config.Catalog.DiscountTypes = []config.DiscountTypeConfig{
		{Code: "LOYALTY", Name: "Loyalty discount", MaxPercent: 20},
		{Code: "MANAGER", Name: "Manager override", MaxPercent: 100, RequiresPin: true},
	}

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}

	validator.NewValidator()

	s.db = NewMockPostgresClient(s.logger)
}

// SetupTest prepares fresh stores and context before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.now = time.Now().UTC()
	s.stores = Stores{
		InvoiceRepo: NewInMemoryInvoiceStore(),
	}
	s.cache = cache.NewInMemoryCache()
	s.recorder = idempotency.NewRecorder(s.cache)
	s.catalog = catalog.NewService(s.config, s.cache)
}

// TearDownTest cleans up after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

// ClearStores resets all in-memory stores
func (s *BaseServiceTestSuite) ClearStores() {
	if store, ok := s.stores.InvoiceRepo.(*InMemoryInvoiceStore); ok {
		store.Clear()
	}
	if s.cache != nil {
		s.cache.Flush(context.Background())
	}
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetRecorder returns the idempotency recorder
func (s *BaseServiceTestSuite) GetRecorder() idempotency.Recorder {
	return s.recorder
}

// GetCatalog returns the catalog service
func (s *BaseServiceTestSuite) GetCatalog() catalog.Service {
	return s.catalog
}

// GetDB returns the mock db client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test config
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current time used in the test
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
