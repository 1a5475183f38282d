package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirayalabs/kiraya/backend/internal/handler/call"
	"github.com/kirayalabs/kiraya/backend/internal/handler/listing"
	"github.com/kirayalabs/kiraya/backend/internal/handler/signaling"
	middlewarePkg "github.com/kirayalabs/kiraya/backend/internal/middleware"
	listingModel "github.com/kirayalabs/kiraya/backend/internal/model/listing"
	aiService "github.com/kirayalabs/kiraya/backend/internal/service/ai"
	callService "github.com/kirayalabs/kiraya/backend/internal/service/call"
	speechService "github.com/kirayalabs/kiraya/backend/internal/service/speech"
	"github.com/kirayalabs/kiraya/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(listings listingModel.Store, callSvc *callService.Service, speechSvc *speechService.Service, aiSvc *aiService.Service, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	// A nil ai service must stay a nil interface so the chat endpoint
	// can detect it.
	var polisher call.ChatPolisher
	if aiSvc != nil {
		polisher = aiSvc
	}

	callHandler := call.New(callSvc, speechSvc, polisher)
	listingHandler := listing.New(listings)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		callHandler.RegisterRoutes(api)
		listingHandler.RegisterRoutes(api)
	})

	r.Route("/ws", func(ws chi.Router) {
		call.NewWebSocketHandler(callSvc, speechSvc).RegisterRoutes(ws)
		signaling.New().RegisterRoutes(ws)
	})

	return r
}
