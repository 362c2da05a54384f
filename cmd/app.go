package cmd

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/naka-gawa/trustgraph/internal/config"
	"github.com/naka-gawa/trustgraph/internal/cvparser"
	"github.com/naka-gawa/trustgraph/internal/gateway"
	"github.com/naka-gawa/trustgraph/internal/graph"
	"github.com/naka-gawa/trustgraph/internal/logger"
	"github.com/naka-gawa/trustgraph/internal/probe"
	"github.com/naka-gawa/trustgraph/internal/server"
	"github.com/naka-gawa/trustgraph/internal/usecase"
	"github.com/naka-gawa/trustgraph/mockdata"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	github   *gateway.GitHubGateway
	probers  []probe.Prober
	verifier *usecase.Verifier
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	gh, err := gateway.NewGitHubGateway(cfg.GitHub, logger.Named(log, "github"))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}

	probers, err := buildProbers(cfg, gh, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   log,
		github:   gh,
		probers:  probers,
		verifier: usecase.NewVerifier(logger.Named(log, "verifier"), probers...),
	}, nil
}

// buildProbers orders the probers sandboxed first, direct last: the last
// prober's failure is the one reported.
func buildProbers(cfg *config.Config, gh gateway.CommitSearcher, log zerolog.Logger) ([]probe.Prober, error) {
	var probers []probe.Prober
	if cfg.Sandbox.Enabled {
		sandboxed, err := probe.NewSandboxedProbe(cfg.Sandbox, cfg.GitHub, logger.Named(log, "sandbox"))
		if err != nil {
			return nil, err
		}
		probers = append(probers, sandboxed)
	}
	return append(probers, probe.NewDirectProbe(gh, cfg.GitHub.Timeout)), nil
}

// dataFS is the embedded mock data unless data.dir points elsewhere.
func (a *app) dataFS() fs.FS {
	if a.cfg.Data.Dir == "" {
		return mockdata.FS
	}
	return os.DirFS(a.cfg.Data.Dir)
}

func (a *app) router() (http.Handler, error) {
	data := a.dataFS()
	store, err := graph.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	cvs := cvparser.NewLoader(data)
	skills := gateway.NewOpenAIGateway(a.cfg.OpenAI, logger.Named(a.logger, "openai"))
	if skills == nil {
		a.logger.Warn().Msg("openai api key not set, skill extraction returns no skills")
	}

	return server.NewRouter(server.Deps{
		Graph:       store,
		CVs:         cvs,
		Skills:      skills,
		Verifier:    a.verifier,
		Enricher:    usecase.NewEnricher(cvs, skills, a.verifier, a.github, logger.Named(a.logger, "enricher")),
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Logger:      logger.Named(a.logger, "http"),
	}), nil
}
