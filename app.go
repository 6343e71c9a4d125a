package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"social_media_analyzer/config"
	"social_media_analyzer/extract"
	"social_media_analyzer/generator"
	"social_media_analyzer/pipeline"
	"social_media_analyzer/server"
)

// app holds the components shared by every command.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	loader     *extract.Loader
	pdf        *extract.Capability
	dispatcher *extract.Dispatcher
	agent      *generator.Agent
}

func setup(c *cli.Context) (*app, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	backend, err := extract.NewBackend(cfg.PDFBackend)
	if err != nil {
		return nil, err
	}
	pdf := extract.NewCapability(backend)

	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	agent, err := generator.NewAgent(llm, generator.Builder{
		MaxChars: cfg.MaxPromptChars,
		Params: generator.Params{
			Temperature:     cfg.LLM.Temperature,
			MaxOutputTokens: cfg.LLM.MaxTokens,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("configured",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"pdf_backend", backend.Name(),
		"credential_set", cfg.Credential() != "",
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		loader:     extract.NewLoader(cfg.MaxFileSize),
		pdf:        pdf,
		dispatcher: extract.NewDispatcher(extract.Config{PDF: pdf, Logger: logger}),
		agent:      agent,
	}, nil
}

func (a *app) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Extractor:     a.dispatcher,
		Requester:     a.agent,
		Credential:    a.cfg.Credential,
		MinTextLength: a.cfg.MinTextLength,
		Logger:        a.logger,
	}
}

func (a *app) server() (*server.Server, error) {
	return server.New(server.Config{
		Pipeline: a.pipelineConfig(),
		Loader:   a.loader,
		PDF:      a.pdf,
		Logger:   a.logger,
	})
}

func buildLLM(cfg *config.Config) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		BaseURL:       cfg.LLM.BaseURL,
		CredentialEnv: cfg.CredentialEnv(),
		Timeout:       cfg.RequestTimeout(),
	}
	switch cfg.LLM.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek speaks the OpenAI protocol; base_url selects the endpoint.
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}
