package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/livesub/internal/config"
	"github.com/leonardotrapani/livesub/internal/provider"
)

// maskAPIKey returns a masked version of an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// keyedProviders lists the providers that take an API key.
func keyedProviders() []string {
	var names []string
	for _, name := range provider.List() {
		if provider.Get(name).RequiresAPIKey {
			names = append(names, name)
		}
	}
	return names
}

func formatProviderOption(cfg *config.Config, name string) string {
	p := provider.Get(name)
	if key := cfg.Providers[name].APIKey; key != "" {
		return fmt.Sprintf("%s (%s)", p.DisplayName, maskAPIKey(key))
	}
	if p.APIKeyFromEnv() != "" {
		return fmt.Sprintf("%s (from $%s)", p.DisplayName, p.EnvVar)
	}
	return p.DisplayName + " (not configured)"
}

// editProviders edits stored API keys until the user goes back.
func editProviders(cfg *config.Config) error {
	for {
		var options []huh.Option[string]
		for _, name := range keyedProviders() {
			options = append(options, huh.NewOption(formatProviderOption(cfg, name), name))
		}
		options = append(options, huh.NewOption("Done", "back"))

		selected := ""
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("API Keys").
					Description("Keys are stored in the config file; environment variables work too").
					Options(options...).
					Value(&selected),
			),
		).WithTheme(getTheme())

		if err := form.Run(); err != nil {
			return err
		}
		if selected == "back" {
			return nil
		}

		apiKey, err := inputAPIKey(cfg, selected)
		if err != nil {
			continue
		}
		if apiKey == "" {
			delete(cfg.Providers, selected)
		} else {
			cfg.Providers[selected] = config.ProviderConfig{APIKey: apiKey}
		}
	}
}

func inputAPIKey(cfg *config.Config, name string) (string, error) {
	p := provider.Get(name)
	apiKey := cfg.Providers[name].APIKey

	desc := "Leave empty to remove the stored key"
	if p.EnvVar != "" {
		desc = fmt.Sprintf("%s; $%s is used when no key is stored", desc, p.EnvVar)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(p.DisplayName+" API Key").
				Description(desc).
				EchoMode(huh.EchoModePassword).
				Validate(apiKeyValidator(p)).
				Value(&apiKey),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return apiKey, nil
}

func apiKeyValidator(p *provider.Provider) func(string) error {
	return func(key string) error {
		if key == "" || p.ValidateAPIKey(key) {
			return nil
		}
		return fmt.Errorf("%s keys start with %q", p.DisplayName, p.KeyPrefix)
	}
}
