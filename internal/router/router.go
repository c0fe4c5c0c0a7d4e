package router

import (
	"reflect"
	"strings"

	"loyalty/config"
	"loyalty/internal/handler"
	"loyalty/internal/middleware"
	"loyalty/internal/repository"
	"loyalty/internal/service"
	"loyalty/internal/ws"
	"loyalty/pkg/cloudinary"
	"loyalty/pkg/passkit"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators built in main.
type Deps struct {
	Builder  *passkit.Builder
	Notifier service.Notifier
	Hub      *ws.Hub
	Logos    cloudinary.Uploader // nil disables logo upload
	Limiter  *middleware.IPRateLimiter
	Log      *zap.Logger
}

func init() {
	// report validation failures under their JSON names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

func Setup(cfg *config.Config, db *gorm.DB, deps Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.Monitor(), middleware.ErrorHandler(log))

	// Repositories
	businessRepo := repository.NewBusinessRepository(db)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	cardRepo := repository.NewCardRepository(db)
	stationRepo := repository.NewStationRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	regRepo := repository.NewRegistrationRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	var events service.EventPublisher
	if deps.Hub != nil {
		events = deps.Hub
	}

	// Services
	authSvc := service.NewAuthService(cfg, db, userRepo, businessRepo)
	passSvc := service.NewPassService(cardRepo, deps.Builder, cfg.PassKit.AuthTokenSecret)
	settlementSvc := service.NewSettlementService(db, businessRepo, cardRepo, txnRepo, deps.Notifier, events, cfg.Settlement.LockTimeout, log)
	stationSvc := service.NewStationService(db, stationRepo, customerRepo, cardRepo, passSvc, events, cfg.Server.PublicBaseURL, log)
	regSvc := service.NewRegistrationService(regRepo, cardRepo, passSvc)
	customerSvc := service.NewCustomerService(db, customerRepo, cardRepo, txnRepo, log)
	businessSvc := service.NewBusinessService(businessRepo, deps.Logos, log)
	dashboardSvc := service.NewDashboardService(dashboardRepo, stationRepo)

	// Handlers
	accountHandler := handler.NewAccountHandler(authSvc, &cfg.JWT)
	stationHandler := handler.NewStationHandler(stationSvc)
	txnHandler := handler.NewTransactionHandler(settlementSvc, customerSvc)
	customerHandler := handler.NewCustomerHandler(customerSvc)
	businessHandler := handler.NewBusinessHandler(businessSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	passkitHandler := handler.NewPassKitHandler(regSvc, passSvc, log)
	healthHandler := handler.NewHealthHandler(db)

	sessionMw := middleware.SessionRequired(&cfg.JWT, authSvc)
	stationMw := middleware.StationRequired(stationSvc)
	rateMw := middleware.RateLimit(limiter)

	accounts := r.Group("/accounts")
	{
		accounts.POST("/business-signup/", rateMw, accountHandler.Signup)
		accounts.POST("/login/", rateMw, accountHandler.Login)
		accounts.POST("/logout/", sessionMw, accountHandler.Logout)
		accounts.GET("/me/", sessionMw, accountHandler.Me)
		accounts.POST("/password/", sessionMw, accountHandler.ChangePassword)
	}

	api := r.Group("/api")
	{
		api.GET("/health/", healthHandler.Check)
		api.GET("/stations/:id/prepared-pass/", rateMw, stationHandler.Claim)

		authed := api.Group("")
		authed.Use(sessionMw)
		{
			authed.GET("/business/", businessHandler.Get)
			authed.PATCH("/business/", businessHandler.Update)
			authed.POST("/business/logo/", businessHandler.UploadLogo)

			authed.GET("/customers/", customerHandler.List)
			authed.POST("/customers/", customerHandler.Enroll)
			authed.DELETE("/customers/:id/", customerHandler.Unenroll)

			authed.GET("/loyaltycards/", customerHandler.ListCards)
			authed.GET("/loyaltycards/:token/qr/", customerHandler.CardQR)
			authed.POST("/loyaltycards/issue/", stationMw, stationHandler.Issue)

			authed.GET("/stations/", stationHandler.List)
			authed.POST("/stations/", stationHandler.Create)

			authed.GET("/transactions/", txnHandler.List)
			authed.POST("/transactions/", stationMw, txnHandler.Create)

			authed.GET("/dashboard-metrics/", dashboardHandler.Metrics)
			authed.GET("/dashboard-data/", dashboardHandler.Detail)
		}
		if deps.Hub != nil {
			api.GET("/ws/stations", ws.UpgradeStationWS(authSvc, deps.Hub, cfg.Server.CORSOrigins, log))
		}
	}

	pk := r.Group("/passkit/v1")
	{
		pk.POST("/devices/:device/registrations/:passType/:serial", passkitHandler.Register)
		pk.DELETE("/devices/:device/registrations/:passType/:serial", passkitHandler.Unregister)
		pk.GET("/devices/:device/registrations/:passType", passkitHandler.ListSerials)
		pk.GET("/passes/:passType/:serial", passkitHandler.Download)
		pk.POST("/log", passkitHandler.Log)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
