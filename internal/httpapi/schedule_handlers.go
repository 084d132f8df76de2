package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"worshipScheduling/internal/auth"
	"worshipScheduling/repository"
)

type messageResponse struct {
	Message string `json:"message"`
}

type deleteAllResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

const scheduleNotFound = "schedule not found"

// scheduleError maps store errors of schedule writes onto responses.
func scheduleError(msg string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(scheduleNotFound)
	case errors.Is(err, repository.ErrInvalidReference):
		return badRequest("participation references an unknown user")
	case errors.Is(err, repository.ErrConflict):
		return conflict("duplicate participation")
	}
	return internalError(msg, err)
}

func (h *handler) listSchedules(c echo.Context) error {
	out, err := h.schedules.List(c.Request().Context())
	if err != nil {
		return internalError("failed to list schedules", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) getSchedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	s, err := h.schedules.GetByID(c.Request().Context(), id)
	if err != nil {
		return internalError("failed to load schedule", err)
	}
	if s == nil {
		return notFound(scheduleNotFound)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *handler) createSchedule(c echo.Context) error {
	var req scheduleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	d, err := req.draft()
	if err != nil {
		return err
	}
	s, err := h.schedules.Create(c.Request().Context(), d)
	if err != nil {
		return scheduleError("failed to create schedule", err)
	}
	h.logger.Info("schedule created", "schedule_id", s.ID, "songs", len(s.Songs), "participations", len(s.Participations))
	return c.JSON(http.StatusCreated, s)
}

// updateSchedule replaces songs and participations wholesale. Concurrent edits are not
// detected; the last one to commit wins.
func (h *handler) updateSchedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req scheduleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	d, err := req.draft()
	if err != nil {
		return err
	}
	s, err := h.schedules.Replace(c.Request().Context(), id, d)
	if err != nil {
		return scheduleError("failed to update schedule", err)
	}
	if s == nil {
		return notFound(scheduleNotFound)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *handler) deleteSchedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.schedules.Delete(c.Request().Context(), id); err != nil {
		return scheduleError("failed to delete schedule", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) deleteAllSchedules(c echo.Context) error {
	n, err := h.schedules.DeleteAll(c.Request().Context())
	if err != nil {
		return internalError("failed to delete schedules", err)
	}
	h.logger.Warn("all schedules deleted", "count", n)
	return c.JSON(http.StatusOK, deleteAllResponse{Message: "all schedules deleted", Deleted: n})
}

func (h *handler) confirm(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.schedules.Confirm(c.Request().Context(), id, p.UserID); err != nil {
		return scheduleError("failed to confirm attendance", err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "attendance confirmed"})
}

// removeConfirmation deletes the caller's confirmation, or with ?userId= (admins only)
// someone else's.
func (h *handler) removeConfirmation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	target := p.UserID
	if raw := strings.TrimSpace(c.QueryParam("userId")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return badRequest("invalid userId")
		}
		target = v
	}
	if target != p.UserID {
		me, err := h.caller(c)
		if err != nil {
			return err
		}
		if !me.IsAdmin() {
			return forbidden("only admins can remove another user's confirmation")
		}
	}
	if err := h.schedules.RemoveConfirmation(c.Request().Context(), id, target); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("confirmation not found")
		}
		return internalError("failed to remove confirmation", err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "confirmation removed"})
}

func (h *handler) requestChange(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req changeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return badRequest("reason is required")
	}
	if err := h.schedules.RequestChange(c.Request().Context(), id, p.UserID, reason); err != nil {
		return scheduleError("failed to request change", err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "change request sent"})
}

func (h *handler) resolveChangeRequest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	if err := h.schedules.ResolveChangeRequest(c.Request().Context(), id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("change request not found")
		}
		return internalError("failed to resolve change request", err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "change request resolved"})
}
