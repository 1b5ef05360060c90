package utils

import (
	"embed"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed i18n/*.yaml
var messageFiles embed.FS

var (
	bundleOnce sync.Once
	bundle     *i18n.Bundle
)

func loadBundle() *i18n.Bundle {
	bundleOnce.Do(func() {
		bundle = i18n.NewBundle(language.English)
		bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

		entries, err := messageFiles.ReadDir("i18n")
		if err != nil {
			panic(err)
		}
		for _, e := range entries {
			buf, err := messageFiles.ReadFile("i18n/" + e.Name())
			if err != nil {
				panic(err)
			}
			bundle.MustParseMessageFileBytes(buf, e.Name())
		}
	})
	return bundle
}

// Messages renders user-visible texts in one language
type Messages struct {
	loc *i18n.Localizer
}

// NewMessages returns a renderer for lang, falling back to English
func NewMessages(lang string) *Messages {
	return &Messages{loc: i18n.NewLocalizer(loadBundle(), lang, language.English.String())}
}

// Text renders message id with optional template data. Unknown ids render
// as the id itself so a missing translation never hides an error.
func (m *Messages) Text(id string, data map[string]interface{}) string {
	if m == nil {
		m = NewMessages("en")
	}
	text, err := m.loc.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return id
	}
	return text
}
