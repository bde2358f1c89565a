package http

import (
	"context"
	"net/http"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/app"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/go-chi/chi/v5"
)

// TemplateManager is the minimal interface needed for availability template endpoints.
type TemplateManager interface {
	CreateTemplate(ctx context.Context, p auth.Principal, in app.TemplateInput) (domain.AvailabilityTemplate, error)
	UpdateTemplate(ctx context.Context, p auth.Principal, id string, in app.TemplateInput) (domain.AvailabilityTemplate, error)
	DeleteTemplate(ctx context.Context, p auth.Principal, id string) error
	ListTemplates(ctx context.Context, p auth.Principal, resourceID string) ([]domain.AvailabilityTemplate, error)
}

type templateWindow struct {
	From      string `json:"from" validate:"required,datetime=2006-01-02"`
	To        string `json:"to" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Available *bool  `json:"available" validate:"required"`
}

// input parses the window. EndTime may be "24:00", which time layouts reject.
func (tw templateWindow) input(resourceID string) (app.TemplateInput, error) {
	from, err := domain.ParseDate(tw.From)
	if err != nil {
		return app.TemplateInput{}, err
	}
	to, err := domain.ParseDate(tw.To)
	if err != nil {
		return app.TemplateInput{}, err
	}
	start, err := parseWindowBound(tw.StartTime)
	if err != nil {
		return app.TemplateInput{}, err
	}
	end, err := parseWindowBound(tw.EndTime)
	if err != nil {
		return app.TemplateInput{}, err
	}
	return app.TemplateInput{
		ResourceID: resourceID,
		From:       from,
		To:         to,
		StartTime:  start,
		EndTime:    end,
		Available:  *tw.Available,
	}, nil
}

func parseWindowBound(s string) (domain.ClockTime, error) {
	if s == "24:00" {
		return domain.ClockTime(24 * 60), nil
	}
	return domain.ParseClockTime(s)
}

type createTemplateRequest struct {
	ResourceID string `json:"resource_id" validate:"required"`
	templateWindow
}

func HandleCreateTemplate(svc TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTemplateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in, err := req.input(req.ResourceID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		tpl, err := svc.CreateTemplate(r.Context(), principalFrom(r), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTemplateResponse(tpl))
	}
}

// HandleUpdateTemplate replaces a window in place. The resource cannot change.
func HandleUpdateTemplate(svc TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req templateWindow
		if !decodeJSON(w, r, &req) {
			return
		}
		in, err := req.input("")
		if err != nil {
			writeDomainError(w, err)
			return
		}
		tpl, err := svc.UpdateTemplate(r.Context(), principalFrom(r), chi.URLParam(r, "templateID"), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTemplateResponse(tpl))
	}
}

func HandleDeleteTemplate(svc TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTemplate(r.Context(), principalFrom(r), chi.URLParam(r, "templateID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleListTemplates(svc TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := svc.ListTemplates(r.Context(), principalFrom(r), chi.URLParam(r, "resourceID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]templateResponse, 0, len(templates))
		for _, t := range templates {
			resp = append(resp, toTemplateResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
