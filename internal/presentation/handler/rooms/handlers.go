package rooms

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/json"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/hilthontt/huddle/internal/infrastructure/validate"
)

var validateCode = validate.Field("code",
	validate.Required(),
	validate.Matches(`^\s*[A-Za-z0-9]{4,16}\s*$`, "must be 4 to 16 letters or digits"),
)

type Handler struct {
	roomRepository domain.RoomRepository
	logger         logging.Logger
}

func NewHandler(roomRepository domain.RoomRepository, logger logging.Logger) *Handler {
	return &Handler{
		roomRepository: roomRepository,
		logger:         logger,
	}
}

// GetRoomHandler godoc
// @Summary      Look up a room
// @Description  Checks that a join code refers to an open room. Codes are case-insensitive.
// @Tags         rooms
// @Produce      json
// @Param        code path string true "Room join code"
// @Success      200 {object} roomResponse "Room is open"
// @Failure      400 {object} json.ErrorResponse "Malformed code"
// @Failure      404 {object} json.ErrorResponse "Room not found"
// @Router       /rooms/{code} [get]
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := validateCode(code); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	room, err := h.roomRepository.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.WriteNotFoundError(w, "Room not found")
			return
		}
		h.logger.Error(logging.RequestResponse, logging.ExternalService, "room lookup failed", map[logging.ExtraKey]any{
			logging.RoomCode:     code,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, roomResponse{
		Code:        room.Code,
		MemberCount: room.MemberCount(),
		CreatedAt:   room.CreatedAt,
	})
}
