package i18n

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/text/language"
)

type Locale string

const (
	English Locale = "en"
	Hindi   Locale = "hi"
)

// Locales lists the supported locales, default first.
var Locales = []Locale{English, Hindi}

var (
	matcher = language.NewMatcher([]language.Tag{language.English, language.Hindi})

	current atomic.Value
)

func init() {
	current.Store(English)
}

var translations = map[string]map[Locale]string{
	"dashboard":     {English: "Dashboard", Hindi: "डैशबोर्ड"},
	"findTalent":    {English: "Find Talent", Hindi: "प्रतिभा खोजें"},
	"postJob":       {English: "Post a Job", Hindi: "नौकरी पोस्ट करें"},
	"earnings":      {English: "Revenue", Hindi: "राजस्व"},
	"activeJobs":    {English: "Active Contracts", Hindi: "सक्रिय अनुबंध"},
	"pendingEscrow": {English: "Escrow Vault", Hindi: "एस्क्रो वॉल्ट"},
	"aiInsights":    {English: "Market Intelligence", Hindi: "बाजार आसूचना"},
	"compatibility": {English: "AI Match", Hindi: "AI मिलान"},
	"hireNow":       {English: "Initiate Contract", Hindi: "अनुबंध शुरू करें"},
	"verified":      {English: "Elite Verified", Hindi: "सत्यापित"},
}

func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Locales, l) {
		return "", fmt.Errorf("unsupported locale %q", s)
	}
	return l, nil
}

// Current returns the process-wide locale.
func Current() Locale {
	return current.Load().(Locale)
}

func Set(l Locale) error {
	if _, err := ParseLocale(string(l)); err != nil {
		return err
	}
	current.Store(l)
	return nil
}

// Toggle switches between English and Hindi and returns the new locale.
func Toggle() Locale {
	for {
		old := Current()
		next := Hindi
		if old == Hindi {
			next = English
		}
		if current.CompareAndSwap(old, next) {
			return next
		}
	}
}

// T translates key into the current locale.
func T(key string) string {
	return Translate(Current(), key)
}

// Translate falls back to English, then to the key itself.
func Translate(l Locale, key string) string {
	entry, ok := translations[key]
	if !ok {
		return key
	}
	if s, ok := entry[l]; ok {
		return s
	}
	return entry[English]
}

// Table returns every translation for l.
func Table(l Locale) map[string]string {
	out := make(map[string]string, len(translations))
	for key := range translations {
		out[key] = Translate(l, key)
	}
	return out
}

func Keys() []string {
	return slices.Sorted(maps.Keys(translations))
}

// Negotiate picks the best supported locale for an Accept-Language header.
func Negotiate(acceptLanguage string) Locale {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return English
	}
	return Locales[idx]
}
