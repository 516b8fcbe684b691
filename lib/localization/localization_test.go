package localization

import (
	"testing"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

func TestLocalizationService(t *testing.T) {
	service := NewLocalizationService()

	t.Run("English localization", func(t *testing.T) {
		localizer := service.GetLocalizer("en")
		result := localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: "verify_correct"})
		if result != "Correct! That was the melody." {
			t.Errorf("Expected 'Correct! That was the melody.', got '%s'", result)
		}
	})

	t.Run("German localization", func(t *testing.T) {
		localizer := service.GetLocalizer("de")
		result := localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: "verify_correct"})
		if result != "Richtig! Das war die Melodie." {
			t.Errorf("Expected 'Richtig! Das war die Melodie.', got '%s'", result)
		}
	})

	t.Run("Unknown language falls back to English", func(t *testing.T) {
		localizer := service.GetLocalizer("xx")
		result := localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: "verify_invalid"})
		if result == "" {
			t.Error("fallback localization returned an empty string")
		}
	})

	t.Run("All required keys exist in English", func(t *testing.T) {
		localizer := service.GetLocalizer("en")
		requiredKeys := []string{
			"verify_correct", "verify_incorrect", "verify_invalid",
			"internal_server_error",
		}

		for _, key := range requiredKeys {
			result := localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: key})
			if result == "" {
				t.Errorf("Key '%s' returned empty string", key)
			}
		}
	})
}
