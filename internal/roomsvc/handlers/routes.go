package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		r.Post("/room", h.CreateRoomHandler)
		r.Get("/room/{code}", h.GetRoomHandler)
		r.Post("/room/{code}/join", h.JoinRoomHandler)
		r.Post("/room/{code}/leave", h.LeaveRoomHandler)
		r.Post("/room/{code}/start", h.StartGameHandler)
		r.Post("/room/{code}/submit/suggestion", h.SubmitSuggestionHandler)
		r.Post("/room/{code}/submit/guess", h.SubmitGuessHandler)
		r.Post("/room/{code}/next-round", h.NextRoundHandler)
		r.Get("/search", h.SearchHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/ops/health", h.HealthHandler)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003022,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
