package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"neobot/internal/domain"
)

// Handler обслуживает REST API панели управления.
type Handler struct {
	log  zerolog.Logger
	repo domain.DashboardRepo
}

// New создаёт обработчик поверх хранилища.
func New(logger zerolog.Logger, repo domain.DashboardRepo) *Handler {
	return &Handler{log: logger, repo: repo}
}

// Mount вешает маршруты панели на роутер.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.getStats)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Post("/", h.saveUser)
			r.Get("/{uid}", h.getUser)
			r.Put("/{uid}", h.updateUser)
			r.Delete("/{uid}", h.deleteUser)
		})

		r.Route("/threads", func(r chi.Router) {
			r.Get("/", h.listThreads)
			r.Post("/", h.saveThread)
			r.Get("/{threadID}", h.getThread)
			r.Put("/{threadID}", h.updateThread)
			r.Delete("/{threadID}", h.deleteThread)
		})

		r.Route("/commands", func(r chi.Router) {
			r.Get("/", h.listCommands)
			r.Post("/", h.saveCommand)
			r.Get("/{name}", h.getCommand)
			r.Put("/{name}", h.updateCommand)
			r.Delete("/{name}", h.deleteCommand)
		})

		r.Route("/command-logs", func(r chi.Router) {
			r.Get("/", h.listCommandLogs)
			r.Post("/", h.insertCommandLog)
		})
	})
}

type statsResponse struct {
	TotalUsers        int `json:"total_users"`
	ActiveThreads     int `json:"active_threads"`
	CommandsUsed      int `json:"commands_used"`
	MessagesProcessed int `json:"messages_processed"`
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.repo.ListUsers(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	threads, err := h.repo.ListThreads(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	stats, err := h.repo.GetStats(ctx, time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, statsResponse{
		TotalUsers:        len(users),
		ActiveThreads:     len(threads),
		CommandsUsed:      stats.CommandsUsed,
		MessagesProcessed: stats.MessagesProcessed,
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.repo.GetUser(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, u)
}

func (h *Handler) saveUser(w http.ResponseWriter, r *http.Request) {
	var u domain.UserRecord
	if !h.decode(w, r, &u) {
		return
	}
	if u.UID == "" {
		h.respondError(w, http.StatusBadRequest, "uid обязателен")
		return
	}
	saved, err := h.repo.SaveUser(r.Context(), u)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, saved)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var u domain.UserRecord
	if !h.decode(w, r, &u) {
		return
	}
	u.UID = chi.URLParam(r, "uid")
	if _, err := h.repo.GetUser(r.Context(), u.UID); err != nil {
		h.fail(w, err)
		return
	}
	saved, err := h.repo.SaveUser(r.Context(), u)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, saved)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteUser(r.Context(), chi.URLParam(r, "uid")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.repo.ListThreads(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, threads)
}

func (h *Handler) getThread(w http.ResponseWriter, r *http.Request) {
	t, err := h.repo.GetThread(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, t)
}

func (h *Handler) saveThread(w http.ResponseWriter, r *http.Request) {
	var t domain.ThreadRecord
	if !h.decode(w, r, &t) {
		return
	}
	if t.ThreadID == "" {
		h.respondError(w, http.StatusBadRequest, "thread_id обязателен")
		return
	}
	saved, err := h.repo.SaveThread(r.Context(), t)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, saved)
}

func (h *Handler) updateThread(w http.ResponseWriter, r *http.Request) {
	var t domain.ThreadRecord
	if !h.decode(w, r, &t) {
		return
	}
	t.ThreadID = chi.URLParam(r, "threadID")
	if _, err := h.repo.GetThread(r.Context(), t.ThreadID); err != nil {
		h.fail(w, err)
		return
	}
	saved, err := h.repo.SaveThread(r.Context(), t)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, saved)
}

func (h *Handler) deleteThread(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteThread(r.Context(), chi.URLParam(r, "threadID")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCommands(w http.ResponseWriter, r *http.Request) {
	commands, err := h.repo.ListCommands(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, commands)
}

func (h *Handler) getCommand(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.GetCommand(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, c)
}

func (h *Handler) saveCommand(w http.ResponseWriter, r *http.Request) {
	var c domain.CommandMeta
	if !h.decode(w, r, &c) {
		return
	}
	if c.Name == "" {
		h.respondError(w, http.StatusBadRequest, "name обязателен")
		return
	}
	saved, err := h.repo.SaveCommand(r.Context(), c)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, saved)
}

func (h *Handler) updateCommand(w http.ResponseWriter, r *http.Request) {
	var c domain.CommandMeta
	if !h.decode(w, r, &c) {
		return
	}
	c.Name = chi.URLParam(r, "name")
	if _, err := h.repo.GetCommand(r.Context(), c.Name); err != nil {
		h.fail(w, err)
		return
	}
	saved, err := h.repo.SaveCommand(r.Context(), c)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, saved)
}

func (h *Handler) deleteCommand(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteCommand(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCommandLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	logs, err := h.repo.ListCommandLogs(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, logs)
}

func (h *Handler) insertCommandLog(w http.ResponseWriter, r *http.Request) {
	var l domain.CommandLogRecord
	if !h.decode(w, r, &l) {
		return
	}
	if l.Command == "" {
		h.respondError(w, http.StatusBadRequest, "command обязателен")
		return
	}
	saved, err := h.repo.InsertCommandLog(r.Context(), l)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, saved)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, "некорректный JSON")
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("api: не удалось записать ответ")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respond(w, status, map[string]string{"error": msg})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "запись не найдена")
		return
	}
	h.log.Error().Err(err).Msg("api: внутренняя ошибка")
	h.respondError(w, http.StatusInternalServerError, "внутренняя ошибка")
}
