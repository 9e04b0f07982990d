package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/catalog"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
	"github.com/zefirior/tastify-services/internal/roomsvc/service"
)

type Handler struct {
	svc       *service.RoomService
	catalog   catalog.Client
	tokenAuth *jwtauth.JWTAuth
}

func NewHandler(svc *service.RoomService, cat catalog.Client) *Handler {
	return &Handler{svc: svc, catalog: cat}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) errorResponse(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, models.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrPreconditionFailed):
		code = http.StatusBadRequest
	default:
		log.Errorf("internal error: %v", err)
	}

	h.CreateResponse(w, Response{Code: code, Error: err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return false
	}
	return true
}

type createRoomRequest struct {
	Nickname string `json:"nickname"`
	UserUID  string `json:"user_uid"`
	GameType string `json:"game_type"`
}

func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Nickname == "" || req.UserUID == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "nickname and user_uid are required"})
		return
	}

	g, err := h.svc.CreateRoom(r.Context(), req.GameType, req.UserUID, req.Nickname)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	view, err := h.svc.GetRoomView(r.Context(), g.Room.Code, req.UserUID)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "room created",
		Code:    http.StatusCreated,
		Data:    view,
	})
}

type joinRoomRequest struct {
	Nickname string `json:"nickname"`
	UserUID  string `json:"user_uid"`
}

func (h *Handler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	var req joinRoomRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Nickname == "" || req.UserUID == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "nickname and user_uid are required"})
		return
	}

	if _, err := h.svc.JoinRoom(r.Context(), code, req.Nickname, req.UserUID); err != nil {
		h.errorResponse(w, err)
		return
	}

	view, err := h.svc.GetRoomView(r.Context(), code, req.UserUID)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "joined room " + code,
		Code:    http.StatusCreated,
		Data:    view,
	})
}

type userRequest struct {
	UserUID string `json:"user_uid"`
}

func (h *Handler) userAction(w http.ResponseWriter, r *http.Request, action func(code, uid string) error) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	var req userRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserUID == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "user_uid is required"})
		return
	}

	if err := action(code, req.UserUID); err != nil {
		h.errorResponse(w, err)
		return
	}

	view, err := h.svc.GetRoomView(r.Context(), code, req.UserUID)
	if err != nil {
		// Leave may close the room, the view is best effort then.
		if errors.Is(err, models.ErrNotFound) {
			h.CreateResponse(w, Response{Code: http.StatusOK})
			return
		}
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: view})
}

func (h *Handler) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, func(code, uid string) error {
		return h.svc.LeaveRoom(r.Context(), code, uid)
	})
}

func (h *Handler) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, func(code, uid string) error {
		return h.svc.StartGame(r.Context(), code, uid)
	})
}

func (h *Handler) NextRoundHandler(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, func(code, uid string) error {
		return h.svc.AdvanceRound(r.Context(), code, uid)
	})
}

type suggestionRequest struct {
	UserUID    string `json:"user_uid"`
	ArtistID   string `json:"artist_id"`
	ArtistName string `json:"artist_name"`
}

func (h *Handler) SubmitSuggestionHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	var req suggestionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserUID == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "user_uid is required"})
		return
	}

	payload := comm.SuggestionPayload{ArtistID: req.ArtistID, ArtistName: req.ArtistName}
	if err := h.svc.SubmitSuggestion(r.Context(), code, req.UserUID, payload); err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "suggestion accepted", Code: http.StatusOK})
}

type guessRequest struct {
	UserUID string  `json:"user_uid"`
	TrackID *string `json:"track_id"`
	Guess   *int    `json:"guess"`
}

func (h *Handler) SubmitGuessHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	var req guessRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserUID == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "user_uid is required"})
		return
	}

	payload := comm.GuessPayload{TrackID: req.TrackID, Guess: req.Guess}
	if err := h.svc.SubmitGuess(r.Context(), code, req.UserUID, payload); err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "guess accepted", Code: http.StatusOK})
}

func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	userUID := r.URL.Query().Get("user_uid")

	view, err := h.svc.GetRoomView(r.Context(), code, userUID)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: view})
}

func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "q is required"})
		return
	}

	artists, err := h.catalog.SearchArtists(r.Context(), query, 10)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: artists})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "room service is running at port " + os.Getenv("ROOM_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	json.NewEncoder(w).Encode(rsp)
}
