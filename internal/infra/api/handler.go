package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ostrin/searchbot/internal/domain/admins"
	"github.com/ostrin/searchbot/internal/domain/plans"
	"github.com/ostrin/searchbot/internal/domain/quota"
	"github.com/ostrin/searchbot/internal/infra/export"
	"github.com/ostrin/searchbot/internal/infra/translate"
)

// PlanCatalog — операции каталога, нужные админке.
type PlanCatalog interface {
	Create(ctx context.Context, p plans.Plan) (*plans.Plan, error)
	Update(ctx context.Context, code string, p plans.Plan) (*plans.Plan, error)
	ListActive(ctx context.Context) ([]plans.Plan, error)
	Deactivate(ctx context.Context, code string) error
}

// Handler — JSON API админ-консоли. Аутентификация живёт во фронтовом слое,
// сюда приходит уже проверенная роль в заголовке X-Admin-Role.
type Handler struct {
	log        *slog.Logger
	engine     *quota.Engine
	plans      PlanCatalog
	translator *translate.Chain
}

func NewHandler(log *slog.Logger, engine *quota.Engine, catalog PlanCatalog, tr *translate.Chain) *Handler {
	return &Handler{log: log, engine: engine, plans: catalog, translator: tr}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/quota", h.withRole(admins.ActionViewQuotas, h.getQuota))
	mux.HandleFunc("GET /api/users/quotas", h.withRole(admins.ActionViewQuotas, h.listQuotas))
	mux.HandleFunc("GET /api/users/quota/export", h.withRole(admins.ActionExportQuotas, h.exportQuotas))
	mux.HandleFunc("POST /api/users/plan", h.withRole(admins.ActionAssignPlan, h.setPlan))
	mux.HandleFunc("GET /api/plans", h.withRole(admins.ActionViewQuotas, h.listPlans))
	mux.HandleFunc("POST /api/plans", h.withRole(admins.ActionManagePlans, h.createPlan))
	mux.HandleFunc("POST /api/plans/update", h.withRole(admins.ActionManagePlans, h.updatePlan))
	mux.HandleFunc("POST /api/plans/deactivate", h.withRole(admins.ActionManagePlans, h.deactivatePlan))
}

func (h *Handler) withRole(action admins.Action, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, ok := admins.ParseRole(r.Header.Get("X-Admin-Role"))
		if !ok || !admins.Allow(role, action) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	}
}

func (h *Handler) getQuota(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	s, err := h.engine.Snapshot(r.Context(), userID)
	if err != nil {
		h.fail(w, "snapshot failed", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) listQuotas(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.engine.ListSnapshots(r.Context())
	if err != nil {
		h.fail(w, "list snapshots failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "users": snaps})
}

func (h *Handler) exportQuotas(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.engine.ListSnapshots(r.Context())
	if err != nil {
		h.fail(w, "list snapshots failed", err)
		return
	}
	buf, err := export.QuotasXLSX(snaps)
	if err != nil {
		h.fail(w, "export failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="user_quotas.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) setPlan(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PostFormValue("user_id"), 10, 64)
	planCode := strings.TrimSpace(r.PostFormValue("plan_code"))
	if err != nil || userID <= 0 || planCode == "" {
		writeError(w, http.StatusBadRequest, "invalid user_id / plan_code")
		return
	}

	s, err := h.engine.AssignPlan(r.Context(), userID, planCode)
	switch {
	case errors.Is(err, quota.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "plan_not_found")
		return
	case errors.Is(err, quota.ErrConflict):
		writeError(w, http.StatusServiceUnavailable, "busy, retry")
		return
	case err != nil:
		h.fail(w, "assign plan failed", err)
		return
	}
	// снапшот в ответе — админке не нужен второй запрос
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "plan": s})
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	list, err := h.plans.ListActive(r.Context())
	if err != nil {
		h.fail(w, "list plans failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "plans": toPlanJSON(list)})
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	p, err := planFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.fillTranslations(r.Context(), &p)

	created, err := h.plans.Create(r.Context(), p)
	if err != nil {
		h.planError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "plan": planJSONOf(*created)})
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PostFormValue("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	p, err := planFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.IsActive = r.PostFormValue("is_active") != "0"
	h.fillTranslations(r.Context(), &p)

	updated, err := h.plans.Update(r.Context(), code, p)
	if err != nil {
		h.planError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "plan": planJSONOf(*updated)})
}

func (h *Handler) deactivatePlan(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PostFormValue("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	if err := h.plans.Deactivate(r.Context(), code); err != nil {
		h.planError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// fillTranslations допереводит описание RU → EN/ES, если поля не заполнены руками.
// Провайдеры best-effort: при неудаче остаётся русский текст.
func (h *Handler) fillTranslations(ctx context.Context, p *plans.Plan) {
	if h.translator == nil || p.DescriptionRU == "" {
		return
	}
	if p.DescriptionEN == "" {
		if t := h.translator.Translate(ctx, p.DescriptionRU, "ru", "en"); t != "" {
			p.DescriptionEN = t
		} else {
			p.DescriptionEN = p.DescriptionRU
		}
	}
	if p.DescriptionES == "" {
		if t := h.translator.Translate(ctx, p.DescriptionRU, "ru", "es"); t != "" {
			p.DescriptionES = t
		} else {
			p.DescriptionES = p.DescriptionRU
		}
	}
}

func (h *Handler) planError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, plans.ErrInvalid):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, plans.ErrTitleTaken):
		writeError(w, http.StatusConflict, "title already exists")
	case errors.Is(err, plans.ErrNotFound):
		writeError(w, http.StatusNotFound, "plan not found")
	default:
		h.fail(w, "plan operation failed", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func planFromForm(r *http.Request) (plans.Plan, error) {
	var p plans.Plan
	p.Title = strings.TrimSpace(r.PostFormValue("title"))

	limit, err := strconv.Atoi(r.PostFormValue("daily_limit"))
	if err != nil {
		return p, errors.New("invalid daily_limit")
	}
	p.DailyLimit = limit

	priceRaw := strings.ReplaceAll(r.PostFormValue("price"), ",", ".")
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return p, errors.New("invalid price")
	}
	p.Price = price

	dv, err := strconv.Atoi(r.PostFormValue("duration_value"))
	if err != nil {
		return p, errors.New("invalid duration_value")
	}
	p.DurationValue = dv
	p.DurationUnit = r.PostFormValue("duration_unit")
	if p.DurationUnit == "" {
		p.DurationUnit = plans.UnitDays
	}

	if v := r.PostFormValue("sort_order"); v != "" {
		so, err := strconv.Atoi(v)
		if err != nil {
			return p, errors.New("invalid sort_order")
		}
		p.SortOrder = so
	}

	p.DescriptionRU = strings.TrimSpace(r.PostFormValue("description_ru"))
	p.DescriptionEN = strings.TrimSpace(r.PostFormValue("description_en"))
	p.DescriptionES = strings.TrimSpace(r.PostFormValue("description_es"))
	return p, nil
}

type planJSON struct {
	Code          string  `json:"code"`
	Title         string  `json:"title"`
	DailyLimit    int     `json:"daily_limit"`
	DescriptionRU string  `json:"description_ru"`
	DescriptionEN string  `json:"description_en"`
	DescriptionES string  `json:"description_es"`
	Price         float64 `json:"price"`
	DurationValue int     `json:"duration_value"`
	DurationUnit  string  `json:"duration_unit"`
	LabelRU       string  `json:"duration_label_ru"`
	LabelEN       string  `json:"duration_label_en"`
	LabelES       string  `json:"duration_label_es"`
	SortOrder     int     `json:"sort_order"`
	IsActive      bool    `json:"is_active"`
}

func planJSONOf(p plans.Plan) planJSON {
	return planJSON{
		Code:          p.Code,
		Title:         p.Title,
		DailyLimit:    p.DailyLimit,
		DescriptionRU: p.DescriptionRU,
		DescriptionEN: p.DescriptionEN,
		DescriptionES: p.DescriptionES,
		Price:         p.Price,
		DurationValue: p.DurationValue,
		DurationUnit:  p.DurationUnit,
		LabelRU:       p.LabelRU,
		LabelEN:       p.LabelEN,
		LabelES:       p.LabelES,
		SortOrder:     p.SortOrder,
		IsActive:      p.IsActive,
	}
}

func toPlanJSON(list []plans.Plan) []planJSON {
	out := make([]planJSON, 0, len(list))
	for _, p := range list {
		out = append(out, planJSONOf(p))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}
