package http

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fxrates/internal/core"
	"fxrates/internal/log"
	"fxrates/internal/storage"
)

const overriddenMessage = "The currency set is fixed by APP_CURRENCIES and cannot be edited here"

// handleAddCurrency activates an application currency from a form or JSON
// body with "code" and optional "name".
func (s *Server) handleAddCurrency(w http.ResponseWriter, r *http.Request) {
	if s.deps.Currencies.Overridden() {
		rejectCurrencyChange(w, http.StatusConflict, overriddenMessage)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		rejectCurrencyChange(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	code, name := p.Get("code"), p.Get("name")

	if err := s.deps.Currencies.Add(r.Context(), code, name); err != nil {
		if errors.Is(err, core.ErrInvalidCurrency) {
			rejectCurrencyChange(w, http.StatusUnprocessableEntity, "Not an ISO 4217 currency code: "+code)
			return
		}
		s.fail(w, r, log.OpValidate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Application currency added",
		log.FieldCurrency, code)
	s.respondCurrencies(w, r, "Added "+code)
}

// handleRemoveCurrency deactivates an application currency.
func (s *Server) handleRemoveCurrency(w http.ResponseWriter, r *http.Request) {
	if s.deps.Currencies.Overridden() {
		rejectCurrencyChange(w, http.StatusConflict, overriddenMessage)
		return
	}
	code := chi.URLParam(r, "code")
	if err := s.deps.Currencies.Remove(r.Context(), code); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidCurrency):
			rejectCurrencyChange(w, http.StatusUnprocessableEntity, "Not an ISO 4217 currency code: "+code)
		case errors.Is(err, storage.ErrCurrencyNotFound):
			rejectCurrencyChange(w, http.StatusNotFound, code+" is not an application currency")
		default:
			s.fail(w, r, log.OpValidate, err)
		}
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Application currency removed",
		log.FieldCurrency, code)
	s.respondCurrencies(w, r, "Removed "+code)
}

// rejectCurrencyChange answers a refused add or remove with an error
// fragment and toast.
func rejectCurrencyChange(w http.ResponseWriter, status int, message string) {
	ErrorFragment(status, message).Notify(NotificationError, message).Write(w)
}

// respondCurrencies re-renders the configuration tab and tells the page to
// reload partials that depend on the currency set.
func (s *Server) respondCurrencies(w http.ResponseWriter, r *http.Request, message string) {
	view, err := s.loadConfigView(r)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "config.html", view); err != nil {
		s.fail(w, r, log.OpRender, err)
		return
	}
	codes := make([]string, 0, len(view.Currencies))
	for _, c := range view.Currencies {
		codes = append(codes, c.Currency.Code)
	}
	NewHTMXResponse().
		CurrenciesChanged(codes).
		ResetForms().
		Notify(NotificationSuccess, message).
		HTML(buf.String()).
		Write(w)
}
