package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"ridebook/internal/handler"
	"ridebook/internal/logger"
	"ridebook/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler     *handler.BookingHandler
	RideHandler        *handler.RideHandler
	DriverHandler      *handler.DriverHandler
	RiderHandler       *handler.RiderHandler
	BankAccountHandler *handler.BankAccountHandler
	RatesHandler       *handler.RatesHandler
	ReportHandler      *handler.ReportHandler
	HealthHandler      *handler.HealthHandler

	// IdempotencyStore is optional; without it Idempotency-Key is only
	// honored by the booking transaction itself.
	IdempotencyStore middleware.ResponseStore
	NewRelicApp      *newrelic.Application
	Logger           *logger.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.RecoveryWithWriter(deps.Logger.Writer()))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(deps.Logger))
	router.Use(middleware.CORS())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NoticeErrors())
	}

	// Health check.
	router.GET("/health", deps.HealthHandler.Check)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.Idempotency(deps.IdempotencyStore, deps.Logger))
	{
		v1.POST("/bookings", deps.BookingHandler.Book)

		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.GET("/:id/ledger", deps.RideHandler.GetLedger)
			rides.POST("/:id/complete", deps.RideHandler.CompleteRide)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.POST("", deps.DriverHandler.Register)
			drivers.POST("/:id/payout", deps.DriverHandler.Payout)
		}

		v1.GET("/riders", deps.RiderHandler.GetAll)

		// Bank account routes.
		accounts := v1.Group("/bank-accounts")
		{
			accounts.GET("", deps.BankAccountHandler.GetAll)
			accounts.GET("/:id", deps.BankAccountHandler.GetByID)
			accounts.POST("", deps.BankAccountHandler.Create)
		}

		// Configuration routes.
		v1.GET("/config/rates", deps.RatesHandler.Get)
		v1.PUT("/config/rates", deps.RatesHandler.Update)

		// Report routes.
		reports := v1.Group("/reports")
		{
			reports.GET("/commission", deps.ReportHandler.Commission)
			reports.GET("/rides-per-driver", deps.ReportHandler.RidesPerDriver)
			reports.GET("/outstanding-payouts", deps.ReportHandler.OutstandingPayouts)
		}
	}

	return router
}
