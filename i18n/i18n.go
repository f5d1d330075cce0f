// Package i18n localizes messages shown to guards and HR (en, id).
package i18n

import (
	"embed"
	"encoding/json"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	bundle        *goi18n.Bundle
	defaultLocale = "en"
	once          sync.Once
)

// Init loads all locale files and sets the default locale. Later calls only change the default.
func Init(defLocale string) {
	if defLocale != "" {
		defaultLocale = defLocale
	}
	once.Do(load)
}

func load() {
	bundle = goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		panic(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			panic(err)
		}
		bundle.MustParseMessageFileBytes(data, e.Name())
	}
	zap.S().Debugf("i18n: loaded %d locale files, default=%s", len(entries), defaultLocale)
}

// Languages lists the loaded locales
func Languages() []language.Tag {
	once.Do(load)
	return bundle.LanguageTags()
}

// T translates messageID for an Accept-Language value (or a plain locale like "id").
// Unknown ids are returned unchanged.
func T(acceptLanguage, messageID string, templateData ...map[string]any) string {
	once.Do(load)
	l := goi18n.NewLocalizer(bundle, acceptLanguage, defaultLocale)

	cfg := &goi18n.LocalizeConfig{MessageID: messageID}
	if len(templateData) > 0 && templateData[0] != nil {
		cfg.TemplateData = templateData[0]
	}
	msg, err := l.Localize(cfg)
	if err != nil {
		return messageID
	}
	return msg
}
