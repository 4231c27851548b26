package handler

import (
	"reunite/backend/internal/approval"
	"reunite/backend/internal/campledger"
	"reunite/backend/internal/livefeed"
	"reunite/backend/internal/matchengine"
	"reunite/backend/internal/notify"
	"reunite/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// Handler wires the HTTP layer to the core services.
type Handler struct {
	Storage  storage.Storage
	Engine   *matchengine.Engine
	Approval *approval.Service
	Ledger   *campledger.Ledger
	Hub      *livefeed.Hub
	Notifier *notify.Service // nil when no bot token is configured
	Log      *logrus.Logger

	JWTSecret       []byte
	VolunteerSecret string
	AdminSecretKey  string
}
