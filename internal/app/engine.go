package app

import (
	"github.com/UrrutiaTs17/TutoUIS-Project/internal/config"
	"github.com/UrrutiaTs17/TutoUIS-Project/internal/meeting"
	"github.com/UrrutiaTs17/TutoUIS-Project/internal/repository"
	"github.com/UrrutiaTs17/TutoUIS-Project/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Engine is the fully wired scheduling engine: every service built over
// one store, with the configured quantum, cascade policy and meeting room
// base URL applied.
type Engine struct {
	Store        *repository.Store
	Sessions     *service.SessionService
	Slots        *service.SlotService
	Reservations *service.ReservationService
	States       *service.StateService
}

func NewEngine(cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) *Engine {
	store := repository.NewStore(pool)
	directory := repository.NewDirectoryRepository(pool)
	conflicts := service.NewConflictChecker(store)
	rooms := meeting.NewRoomLinker(cfg.MeetingBaseURL)

	return &Engine{
		Store:        store,
		Sessions:     service.NewSessionService(store, directory, directory, conflicts, logger),
		Slots:        service.NewSlotService(store, conflicts, cfg.SlotCancelCascade, logger),
		Reservations: service.NewReservationService(store, directory, rooms, cfg.ReservationQuantum, logger),
		States:       service.NewStateService(store, logger),
	}
}
