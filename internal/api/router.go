package api

import (
	v1 "github.com/clubledger/clubledger/internal/api/v1"
	"github.com/clubledger/clubledger/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Invoice *v1.InvoiceHandler
	Catalog *v1.CatalogHandler
	Health  *v1.HealthHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.TenantMiddleware)
	router.Use(middleware.RateLimitMiddleware(100, 200))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Invoice routes
	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.POST("/:id/issue", handlers.Invoice.IssueInvoice)
		invoices.POST("/:id/apply-discount", handlers.Invoice.ApplyDiscount)
		invoices.POST("/:id/process-payment", handlers.Invoice.ProcessPayment)
		invoices.POST("/:id/record-deposit", handlers.Invoice.RecordDeposit)
		invoices.POST("/:id/cancel", handlers.Invoice.CancelInvoice)
	}

	// Catalog routes
	catalog := router.Group("/catalog")
	{
		catalog.GET("/discount-types", handlers.Catalog.ListDiscountTypes)
		catalog.GET("/membership-tiers", handlers.Catalog.ListMembershipTiers)
	}
}
