// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/docs"
	"courier/internal/http/handlers"
	"courier/internal/http/middleware"
	"courier/internal/modules/driver"
	"courier/internal/modules/location"
	"courier/internal/modules/trip"
	"courier/internal/modules/wallet"
)

type RouterDeps struct {
	Drivers   *driver.Service
	Wallets   *wallet.Service
	Trips     *trip.Service
	Locations *location.Service
	Documents *docs.Storage

	JWTSecret string
	Log       *slog.Logger
}

// NewRouter wires every module handler behind shared auth/logging/recovery
// middleware. Registration and /health stay public; verification, rejection
// and wallet adjustments are admin-only.
func NewRouter(deps RouterDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	dh := handlers.NewDriverHandler(deps.Drivers)
	wh := handlers.NewWalletHandler(deps.Wallets)
	th := handlers.NewTripHandler(deps.Trips)
	lh := handlers.NewLocationHandler(deps.Locations)

	r.POST("/api/drivers", dh.Register)

	api := r.Group("/api", middleware.Auth(deps.JWTSecret))
	admin := middleware.RequireRole(middleware.RoleAdmin)

	d := api.Group("/drivers")
	d.GET("/:id", dh.Get)
	d.PATCH("/:id", dh.UpdateProfile)
	d.PUT("/:id/vehicle", dh.UpdateVehicle)
	d.POST("/:id/status", dh.SetStatus)
	d.POST("/:id/fcm-token", dh.SetFCMToken)
	d.POST("/:id/verify", admin, dh.Verify)
	d.POST("/:id/reject", admin, dh.Reject)
	d.DELETE("/:id", admin, dh.Delete)

	d.GET("/:id/wallet", wh.Get)
	d.GET("/:id/wallet/transactions", wh.Transactions)
	d.POST("/:id/wallet/deposit", wh.Deposit)
	d.POST("/:id/wallet/withdraw", wh.Withdraw)
	d.POST("/:id/wallet/collect-cash", wh.CollectCash)
	d.POST("/:id/wallet/return-cash", wh.ReturnCash)
	d.POST("/:id/wallet/bonus", admin, wh.Bonus)
	d.POST("/:id/wallet/penalty", admin, wh.Penalty)
	d.POST("/:id/wallet/refund", admin, wh.Refund)
	d.POST("/:id/wallet/activate", admin, wh.Activate)
	d.POST("/:id/wallet/deactivate", admin, wh.Deactivate)

	d.PUT("/:id/location", lh.Update)
	d.GET("/:id/location", lh.Get)
	d.GET("/nearby", lh.Nearby)

	t := api.Group("/trips")
	t.POST("", th.Create)
	t.GET("", th.List)
	t.GET("/:id", th.Get)
	t.POST("/:id/status", th.UpdateStatus)
	t.POST("/:id/complete", th.Complete)
	t.POST("/:id/cancel", th.Cancel)
	t.POST("/:id/fail", th.Fail)
	t.POST("/:id/rating", th.Rate)

	if deps.Documents != nil {
		doc := handlers.NewDocumentHandler(deps.Documents)
		api.POST("/documents", doc.Upload)
		api.GET("/documents/:name", doc.Download)
	}

	return r
}
