package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/plankhq/plank/internal/api/v1"
	"github.com/plankhq/plank/internal/api/ws"
	"github.com/plankhq/plank/internal/room"
	"github.com/plankhq/plank/internal/store/postgres"
	redisstore "github.com/plankhq/plank/internal/store/redis"
)

func registerAPIRoutes(api huma.API, rooms *room.Registry, store *postgres.Store, presence *redisstore.Presence) {
	v1.RegisterBoardRoutes(api, rooms, store.Snapshots())
	v1.RegisterPresenceRoutes(api, presence)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/boards/{boardID}/sync", hub.ServeSync)
	r.Get("/boards/{boardID}/events", hub.ServeEvents)
	r.Get("/boards/{boardID}/presence", hub.ServePresence)
}
