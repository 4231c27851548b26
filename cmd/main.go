package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"reunite/backend/internal/api/handler"
	"reunite/backend/internal/approval"
	"reunite/backend/internal/campledger"
	"reunite/backend/internal/livefeed"
	"reunite/backend/internal/matchengine"
	"reunite/backend/internal/models"
	"reunite/backend/internal/notify"
	"reunite/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	if os.Getenv("LOG_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func setupDependencies(log *logrus.Logger) (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Admin{},
		&models.Volunteer{},
		&models.Family{},
		&models.Camp{},
		&models.SearchRequest{},
		&models.Sighting{},
		&models.MatchCandidate{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Info("database and redis connections established, migrations complete")
	return db, rdb
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: no .env file loaded")
	}
	log := newLogger()
	log.Info("starting reunite backend")

	db, rdb := setupDependencies(log)
	s := storage.NewStorageService(db, rdb, log)

	engine := matchengine.NewEngine(s, log)
	approvalSvc := approval.NewService(s, log)
	ledger := campledger.NewLedger(s, log)
	hub := livefeed.NewHub(s, log)

	var notifier *notify.Service
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_OPS_CHAT_ID"), 10, 64)
		if err != nil {
			log.Fatalf("TELEGRAM_OPS_CHAT_ID must be a numeric chat id: %v", err)
		}
		notifier, err = notify.NewService(token, chatID, s, log)
		if err != nil {
			log.Fatalf("Failed to start telegram notifier: %v", err)
		}
	}

	// Repair any assignment divergence left by a previous crash before
	// serving traffic.
	if repaired, err := ledger.Reconcile(); err != nil {
		log.WithError(err).Error("startup reconciliation failed")
	} else if repaired > 0 {
		log.WithField("repaired", repaired).Warn("startup reconciliation repaired assignments")
	}

	go engine.Run()
	go hub.Run()
	if notifier != nil {
		go notifier.Run()
	}

	h := &handler.Handler{
		Storage:         s,
		Engine:          engine,
		Approval:        approvalSvc,
		Ledger:          ledger,
		Hub:             hub,
		Notifier:        notifier,
		Log:             log,
		JWTSecret:       []byte(os.Getenv("JWT_SECRET")),
		VolunteerSecret: os.Getenv("VOLUNTEER_SECRET"),
		AdminSecretKey:  os.Getenv("ADMIN_SECRET_KEY"),
	}

	r := gin.Default()

	// Public auth routes
	r.POST("/api/volunteers/register", h.RegisterVolunteer)
	r.POST("/api/volunteers/login", h.LoginVolunteer)
	r.POST("/api/families/register", h.RegisterFamily)
	r.POST("/api/families/login", h.LoginFamily)
	r.POST("/api/admin/register", h.RegisterAdmin)
	r.POST("/api/admin/login", h.LoginAdmin)

	// The live feed authenticates via a query token during the upgrade.
	r.GET("/api/admin/feed", h.ServeFeed)

	auth := r.Group("/api", h.AuthMiddleware())
	{
		auth.POST("/sightings", h.SubmitSighting)
		auth.POST("/search-requests", h.SubmitSearchRequest)
		auth.GET("/search-requests/:id/candidates", h.ListCandidates)
	}

	admin := r.Group("/api/admin", h.AuthMiddleware(), h.RequireModerator())
	{
		admin.GET("/stats", h.GetAdminStats)

		admin.GET("/volunteers", h.GetAllVolunteers)
		admin.GET("/volunteers/pending", h.GetPendingVolunteers)
		admin.PUT("/volunteers/:id/approve", h.ApproveVolunteer)
		admin.PUT("/volunteers/:id/reject", h.RejectVolunteer)
		admin.PUT("/volunteers/:id/deactivate", h.DeactivateVolunteer)
		admin.DELETE("/volunteers/:id", h.DeleteVolunteer)

		admin.GET("/families", h.GetAllFamilies)
		admin.GET("/families/pending", h.GetPendingFamilies)
		admin.PUT("/families/:id/approve", h.ApproveFamily)
		admin.DELETE("/families/:id", h.DeleteFamily)

		admin.GET("/camps", h.ListCamps)
		admin.POST("/camps", h.CreateCamp)
		admin.GET("/camps/:id", h.GetCamp)
		admin.PUT("/camps/:id", h.UpdateCamp)
		admin.DELETE("/camps/:id", h.DeleteCamp)
		admin.GET("/camps/:id/capacity", h.CampCapacity)

		admin.POST("/assignments", h.AssignVolunteer)
		admin.DELETE("/assignments", h.UnassignVolunteer)
		admin.POST("/assignments/reconcile", h.ReconcileAssignments)

		admin.GET("/search-requests", h.ListSearchRequests)
		admin.DELETE("/search-requests/:id", h.DeleteSearchRequest)
		admin.GET("/sightings", h.ListSightings)
		admin.DELETE("/sightings/:id", h.DeleteSighting)
		admin.POST("/matches/confirm", h.ConfirmMatch)
	}

	server := &http.Server{
		Addr:           ":8080",
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
