package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/casestrength/internal/analytics"
	"github.com/ppiankov/casestrength/internal/llm"
	"github.com/ppiankov/casestrength/internal/logger"
	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/render"
	"github.com/ppiankov/casestrength/internal/schema"
	"github.com/ppiankov/casestrength/internal/worker"
)

// registerDefaults makes every config key known to viper, so that
// CASESTRENGTH_* variables apply even when no config file sets the key
func registerDefaults() {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaults("", tree)

	// Omitted from the marshaled defaults because they are empty
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.base_url", "")
}

func setDefaults(prefix string, tree map[string]interface{}) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig returns the effective configuration: defaults, then the
// config file, then environment, then flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Provider keys from the conventional variables
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	return cfg, nil
}

func newLogger(cfg *model.Config) logger.Logger {
	level := cfg.Output.LogLevel
	if cfg.Output.Verbose || verbose {
		level = "debug"
	}
	return logger.New(os.Stderr, level)
}

func loadRegistry(cfg *model.Config) (*schema.Registry, error) {
	if cfg.Schemas.Dir == "" {
		return schema.LoadBuiltin()
	}
	reg, err := schema.LoadDir(cfg.Schemas.Dir)
	if err != nil {
		return nil, fmt.Errorf("load schemas from %s: %w", cfg.Schemas.Dir, err)
	}
	return reg, nil
}

func newLimiter(cfg *model.Config) *worker.Limiter {
	return worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
}

func newAnalytics(cfg *model.Config, log logger.Logger) (analytics.Sink, error) {
	sink, err := analytics.NewSink(cfg.Analytics, newLimiter(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	return sink, nil
}

func newNarrator(cfg *model.Config, log logger.Logger) (*llm.Narrator, error) {
	n, err := llm.NewNarrator(llm.ConfigFromModel(cfg.LLM), log)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return n, nil
}

func newRenderer(cfg *model.Config) (*render.Renderer, error) {
	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	return render.New(format, render.Options{Contributions: cfg.Output.Contributions}), nil
}

// emit renders a report to out, or to path when one is given
func emit(out io.Writer, r *render.Renderer, report render.Report, path string) error {
	if path == "" {
		return r.Render(out, report)
	}
	if err := r.WriteFile(path, report); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	return nil
}

// redact hides secrets before a config is printed
func redact(cfg model.Config) model.Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		if len(s) <= 4 {
			return "****"
		}
		return strings.Repeat("*", 8) + s[len(s)-4:]
	}
	cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
	cfg.Analytics.APIKey = mask(cfg.Analytics.APIKey)
	return cfg
}
