package http

import (
	"log/slog"
	"net/http"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services bundles what the router dispatches to. *app.Engine provides all
// of them through its fields.
type Services struct {
	Availability AvailabilityResolver
	Reservations ReservationService
	Settlement   SettlementService
	Webhooks     WebhookConfirmer
	Reviews      ReviewService
	Closures     ClosureManager
	Templates    TemplateManager
}

type RouterConfig struct {
	Services    Services
	Tokens      TokenParser
	DB          Pinger
	WebhookRate *RateLimiter
	CORSOrigins []string
	Logger      *slog.Logger
	// TracingName enables an X-Ray segment per request when set.
	TracingName string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	if cfg.DB != nil {
		r.Get("/ready", ReadyHandler(cfg.DB))
	}

	r.Group(func(r chi.Router) {
		if cfg.WebhookRate != nil {
			r.Use(cfg.WebhookRate.Middleware)
		}
		r.Post("/webhooks/{provider}", HandleWebhook(cfg.Services.Webhooks))
	})

	svc := cfg.Services
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.Tokens))

		r.Get("/resources/{resourceID}/availability", HandleAvailability(svc.Availability))
		r.Get("/resources/{resourceID}/templates", HandleListTemplates(svc.Templates))

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", HandleCreateReservation(svc.Reservations))
			r.Get("/{reservationID}", HandleGetReservation(svc.Reservations))
			r.Post("/{reservationID}/cancel", HandleCancelReservation(svc.Reservations))
			r.Post("/{reservationID}/settle-cash", HandleSettleCash(svc.Settlement))
			r.Post("/{reservationID}/refunded", HandleMarkRefunded(svc.Settlement))
		})

		r.Route("/closures", func(r chi.Router) {
			r.Get("/", HandleListClosures(svc.Closures))
			r.Post("/", HandleAddClosure(svc.Closures))
			r.Delete("/{closureID}", HandleRemoveClosure(svc.Closures))
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", HandleCreateTemplate(svc.Templates))
			r.Put("/{templateID}", HandleUpdateTemplate(svc.Templates))
			r.Delete("/{templateID}", HandleDeleteTemplate(svc.Templates))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/review-queue", HandleReviewQueue(svc.Reviews))
			r.Post("/payments/{intentID}/review", HandleResolveReview(svc.Reviews))
			r.Post("/review-items/{itemID}/dismiss", HandleDismissReviewItem(svc.Reviews))
		})
	})

	var handler http.Handler = r
	handler = RequestLogger(handler, cfg.Logger)
	if cfg.TracingName != "" {
		handler = xray.Handler(xray.NewFixedSegmentNamer(cfg.TracingName), handler)
	}
	return handler
}
