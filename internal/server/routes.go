package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/taskboard/internal/api/v1"
	"github.com/gosuda/taskboard/internal/api/ws"
)

func registerAPIRoutes(api huma.API, svc Services) {
	v1.RegisterProjectRoutes(api, svc.Projects)
	v1.RegisterSprintRoutes(api, svc.Sprints)
	v1.RegisterTaskRoutes(api, svc.Tasks)
	v1.RegisterBoardRoutes(api, svc.Tasks)
}

func registerHubRoutes(r chi.Router, hub *ws.Hub) {
	r.Post("/broadcast", hub.ServePublish)
	r.Get("/rooms", hub.ServeRooms)
}
