package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kkkhaled/yolel-4/internal/config"
	levelssvc "github.com/kkkhaled/yolel-4/internal/services/levels"
	votessvc "github.com/kkkhaled/yolel-4/internal/services/votes"
	"github.com/kkkhaled/yolel-4/internal/transport/http/handlers"
)

type Dependencies struct {
	VotesService  *votessvc.Service
	LevelsService *levelssvc.Service
	Logger        *zap.Logger
	Config        config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	voteHandler := handlers.NewVoteHandler(deps.VotesService)
	levelsHandler := handlers.NewLevelsHandler(deps.LevelsService)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/votes", func(r chi.Router) {
		r.Get("/feed", voteHandler.Feed)
		r.Get("/{voteID}", voteHandler.Get)
		r.Post("/{voteID}/choice", voteHandler.ResolveChoice)
	})

	r.Route("/uploads", func(r chi.Router) {
		r.Get("/search", levelsHandler.Search)
		r.Get("/levels/{level}", levelsHandler.ByLevel)
		r.Post("/levels/migrate", levelsHandler.Migrate)
	})
}
