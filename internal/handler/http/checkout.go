package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	apperrors "github.com/araliya/storefront/pkg/errors"
	"github.com/araliya/storefront/pkg/httputil"
	"github.com/araliya/storefront/pkg/middleware"

	"github.com/araliya/storefront/internal/domain"
	"github.com/araliya/storefront/internal/service"
)

// redirectFormTmpl renders the payment hand-off as a self-submitting form.
// html/template escapes every field value, so processor-supplied payment
// data cannot inject markup into the page.
var redirectFormTmpl = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><title>Redirecting to payment...</title></head>
<body onload="document.forms[0].submit()">
<p>Redirecting to the payment processor...</p>
<form method="{{.Method}}" action="{{.CheckoutURL}}">
{{- range $name, $value := .Fields}}
<input type="hidden" name="{{$name}}" value="{{$value}}">
{{- end}}
<noscript><button type="submit">Continue to payment</button></noscript>
</form>
</body>
</html>
`))

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	service     *service.CheckoutService
	checkoutURL string
	logger      *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler. checkoutURL is the
// configured payment processor endpoint; any descriptor targeting a
// different host is refused rather than rendered.
func NewCheckoutHandler(svc *service.CheckoutService, checkoutURL string, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:     svc,
		checkoutURL: checkoutURL,
		logger:      logger,
	}
}

// Prepare handles POST /api/v1/checkout. It submits the cart and returns
// the redirect descriptor as JSON; the client performs the navigation.
func (h *CheckoutHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	token := middleware.TokenFromContext(r.Context())

	redirect, err := h.service.Prepare(r.Context(), userID, token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: redirect})
}

// PrepareRedirect handles POST /api/v1/checkout/redirect. It submits the
// cart and responds with an HTML page that auto-submits the payment form,
// for clients that cannot build the form themselves.
func (h *CheckoutHandler) PrepareRedirect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	token := middleware.TokenFromContext(r.Context())

	redirect, err := h.service.Prepare(r.Context(), userID, token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.validateTarget(redirect); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := redirectFormTmpl.Execute(w, redirect); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render redirect form",
			slog.String("order_id", redirect.OrderID),
			slog.String("error", err.Error()),
		)
	}
}

// validateTarget refuses to render a form that posts anywhere but the
// configured payment processor endpoint.
func (h *CheckoutHandler) validateTarget(redirect *domain.CheckoutRedirect) error {
	if redirect.CheckoutURL != h.checkoutURL {
		return apperrors.RedirectFailure("redirect target does not match the configured payment processor")
	}
	u, err := url.ParseRequestURI(redirect.CheckoutURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return apperrors.RedirectFailure("redirect target is not a valid http(s) URL")
	}
	return nil
}
