package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/duet/pkg/adapter"
	"github.com/m-mizutani/duet/pkg/agent"
	"github.com/m-mizutani/duet/pkg/repository"
	"github.com/m-mizutani/duet/pkg/service/mcp"
	"github.com/m-mizutani/duet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	logLevel string

	// Memory store
	store     string
	storePath string
	mcpConfig string

	// Journal
	journal     string
	journalPath string

	// Embedding
	embedder       string
	geminiProject  string
	geminiLocation string

	// Firestore
	project  string
	database string

	// Agents
	agentConfig string
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "duet")
	}
	return ".duet"
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("DUET_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// storeFlags returns flags selecting the memory store and the journal
func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Memory store (local, mcp, firestore)",
			Value:       "local",
			Sources:     cli.EnvVars("DUET_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "store-path",
			Usage:       "Directory of the local memory store",
			Value:       filepath.Join(defaultDataDir(), "memory"),
			Sources:     cli.EnvVars("DUET_STORE_PATH"),
			Destination: &cfg.storePath,
		},
		&cli.StringFlag{
			Name:        "mcp-config",
			Usage:       "YAML config of the memory MCP server (required for --store mcp)",
			Sources:     cli.EnvVars("DUET_MCP_CONFIG"),
			Destination: &cfg.mcpConfig,
		},
		&cli.StringFlag{
			Name:        "journal",
			Usage:       "Session journal (local, firestore)",
			Value:       "local",
			Sources:     cli.EnvVars("DUET_JOURNAL"),
			Destination: &cfg.journal,
		},
		&cli.StringFlag{
			Name:        "journal-path",
			Usage:       "Directory of the local session journal",
			Value:       filepath.Join(defaultDataDir(), "journal"),
			Sources:     cli.EnvVars("DUET_JOURNAL_PATH"),
			Destination: &cfg.journalPath,
		},
		&cli.StringFlag{
			Name:        "embedder",
			Usage:       "Embedding for local and firestore stores (hash, gemini)",
			Value:       "hash",
			Sources:     cli.EnvVars("DUET_EMBEDDER"),
			Destination: &cfg.embedder,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
	}
}

// agentFlags returns flags for agent profiles
func agentFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "agent-config",
			Usage:       "YAML file overriding the planner and reviewer commands",
			Sources:     cli.EnvVars("DUET_AGENT_CONFIG"),
			Destination: &cfg.agentConfig,
		},
	}
}

// setupLogger installs the logger selected by --log-level into ctx
func (cfg *config) setupLogger(ctx context.Context, c *cli.Command) context.Context {
	logger := logging.New(cfg.logLevel, c.Root().ErrWriter)
	return logging.With(ctx, logger)
}

// newEmbedder creates the embedder used by local and firestore stores
func (cfg *config) newEmbedder(ctx context.Context) (adapter.Embedder, error) {
	switch cfg.embedder {
	case "hash", "":
		return adapter.NewHashEmbedder(), nil
	case "gemini":
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
		return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
	default:
		return nil, goerr.New("unknown embedder", goerr.V("embedder", cfg.embedder))
	}
}

func (cfg *config) newFirestore(ctx context.Context, opts ...repository.FirestoreOption) (*repository.Firestore, error) {
	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.New(ctx, cfg.project, cfg.database, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newRepository creates the session journal
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.journal {
	case "local", "":
		if err := os.MkdirAll(cfg.journalPath, 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create journal directory", goerr.V("path", cfg.journalPath))
		}
		return repository.NewBadger(cfg.journalPath)
	case "firestore":
		return cfg.newFirestore(ctx)
	default:
		return nil, goerr.New("unknown journal", goerr.V("journal", cfg.journal))
	}
}

// closingStore closes a resource owned by the store together with it
type closingStore struct {
	adapter.MemoryStore
	owner io.Closer
}

func (s *closingStore) Close() error {
	return s.owner.Close()
}

// newMemoryStore creates the memory store the agents share
func (cfg *config) newMemoryStore(ctx context.Context) (adapter.MemoryStore, error) {
	switch cfg.store {
	case "local", "":
		embedder, err := cfg.newEmbedder(ctx)
		if err != nil {
			return nil, err
		}
		return adapter.NewLocalStore(cfg.storePath, embedder)

	case "mcp":
		mcpCfg, err := mcp.LoadConfig(cfg.mcpConfig)
		if err != nil {
			return nil, err
		}
		return mcp.NewMemoryStore(ctx, mcpCfg)

	case "firestore":
		embedder, err := cfg.newEmbedder(ctx)
		if err != nil {
			return nil, err
		}
		repo, err := cfg.newFirestore(ctx, repository.WithEmbedder(embedder))
		if err != nil {
			return nil, err
		}
		store, err := repo.Memories()
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		return &closingStore{MemoryStore: store, owner: repo}, nil

	default:
		return nil, goerr.New("unknown memory store", goerr.V("store", cfg.store))
	}
}

// newProfiles loads the agent profiles
func (cfg *config) newProfiles() (*agent.Profiles, error) {
	return agent.LoadProfiles(cfg.agentConfig)
}

// newStorage creates a new Storage adapter instance
func (cfg *config) newStorage(ctx context.Context, bucketName string) (adapter.Storage, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	storage, err := adapter.NewStorage(ctx, bucketName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}
