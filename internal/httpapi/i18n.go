package httpapi

import (
	"net/http"

	"github.com/spigell/workhive/internal/i18n"
)

type translationsResponse struct {
	Locale       i18n.Locale       `json:"locale"`
	Current      i18n.Locale       `json:"current"`
	Translations map[string]string `json:"translations"`
}

// handleTranslations serves the table for the locale query parameter, the
// Accept-Language header, or the process locale, in that order.
func (h *Handler) handleTranslations(w http.ResponseWriter, r *http.Request) error {
	locale := i18n.Current()
	switch {
	case r.URL.Query().Get("locale") != "":
		l, err := i18n.ParseLocale(r.URL.Query().Get("locale"))
		if err != nil {
			return NewAppError(http.StatusBadRequest, err.Error(), nil, err)
		}
		locale = l
	case r.Header.Get("Accept-Language") != "":
		locale = i18n.Negotiate(r.Header.Get("Accept-Language"))
	}

	return ok(w, translationsResponse{
		Locale:       locale,
		Current:      i18n.Current(),
		Translations: i18n.Table(locale),
	})
}

type setLocaleRequest struct {
	Locale string `json:"locale"`
	Toggle bool   `json:"toggle"`
}

func (h *Handler) handleSetLocale(w http.ResponseWriter, r *http.Request) error {
	var req setLocaleRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	switch {
	case req.Toggle:
		i18n.Toggle()
	case req.Locale != "":
		l, err := i18n.ParseLocale(req.Locale)
		if err != nil {
			return NewAppError(http.StatusBadRequest, err.Error(), nil, err)
		}
		if err := i18n.Set(l); err != nil {
			return NewAppError(http.StatusBadRequest, err.Error(), nil, err)
		}
	default:
		return NewAppError(http.StatusBadRequest, "locale or toggle is required", nil, nil)
	}

	return ok(w, map[string]i18n.Locale{"locale": i18n.Current()})
}
