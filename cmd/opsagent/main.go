// opsagent - conversational AWS DevOps assistant with long-term memory.
package main

import (
	"context"
	"fmt"
	"os"
	goruntime "runtime"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/opsforge/opsagent/pkg/agent"
	"github.com/opsforge/opsagent/pkg/config"
	"github.com/opsforge/opsagent/pkg/logger"
	"github.com/opsforge/opsagent/pkg/memory"
	"github.com/opsforge/opsagent/pkg/memstore"
	"github.com/opsforge/opsagent/pkg/paramstore"
	"github.com/opsforge/opsagent/pkg/runtime"
	"github.com/opsforge/opsagent/pkg/tools"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

const appName = "opsagent"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	fmt.Printf("  Go: %s\n", goruntime.Version())
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired-up subsystems for one run.
type app struct {
	cfg      *config.Config
	store    memstore.Store
	params   paramstore.Client
	registry *tools.Registry
	memoryID string
	hasMem   bool
	agent    *agent.Agent
	closeFns []func() error
}

func (a *app) Close() {
	for _, fn := range a.closeFns {
		if err := fn(); err != nil {
			logger.WarnCF("app", "shutdown cleanup failed", map[string]any{"error": err.Error()})
		}
	}
}

// newApp loads config, sets up logging, and wires the memory backend. Model
// runtime and agent wiring happen in newChatApp since only the chat command
// needs them.
func newApp(ctx context.Context, configPath, modelOverride string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if modelOverride != "" {
		if _, ok := config.LookupModel(modelOverride); !ok {
			return nil, fmt.Errorf("unknown model %q, run %q to list models", modelOverride, appName+" models")
		}
		cfg.Agent.Model = modelOverride
	}
	logger.Setup(cfg.Log.Level, logger.Format(cfg.Log.Format))

	a := &app{cfg: cfg}
	if err := a.wireMemoryBackend(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) wireMemoryBackend(ctx context.Context) error {
	switch a.cfg.Memory.Backend {
	case config.BackendAgentCore:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.cfg.AWS.Region))
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		a.store = memstore.NewAgentCore(awsCfg)
		a.params = paramstore.NewSSM(awsCfg)
	case config.BackendLocal:
		store, err := memstore.OpenLocal(a.cfg.LocalMemoryPath())
		if err != nil {
			return fmt.Errorf("open local memory store: %w", err)
		}
		a.store = store
		a.params = paramstore.NewFileStore(a.cfg.LocalMemoryPath() + ".params.json")
		a.closeFns = append(a.closeFns, store.Close)
	default:
		return fmt.Errorf("unknown memory backend %q", a.cfg.Memory.Backend)
	}
	return nil
}

// resolveMemory runs the three-tier resolution and returns whether memory is
// available for this run.
func (a *app) resolveMemory(ctx context.Context) bool {
	resolver := memory.NewResolver(a.params, a.store, memory.ResolverConfig{
		ResourceName:    a.cfg.Memory.ResourceName,
		Description:     a.cfg.Memory.Description,
		ParameterPath:   a.cfg.Memory.ParameterPath,
		EventExpiryDays: a.cfg.Memory.EventExpiryDays,
		Strategies:      memory.DefaultStrategies(),
	})
	a.memoryID, a.hasMem = resolver.Resolve(ctx)
	return a.hasMem
}

// newChatApp wires everything the chat command needs: memory resolution,
// hooks, tools, model runtime, and the agent itself.
func newChatApp(ctx context.Context, configPath, modelOverride string) (*app, error) {
	a, err := newApp(ctx, configPath, modelOverride)
	if err != nil {
		return nil, err
	}

	a.resolveMemory(ctx)
	session := memory.NewSession(a.cfg.Memory.ActorID)
	hooks := memory.NewHooks(a.store, a.memoryID, session, a.cfg.Memory.ContextTopK)

	a.registry = tools.NewRegistry()
	if a.cfg.Tools.Web.DuckDuckGo.Enabled {
		a.registry.Register(tools.NewWebSearchTool(tools.WebSearchOptions{
			Region:     a.cfg.Tools.Web.DuckDuckGo.Region,
			MaxResults: a.cfg.Tools.Web.DuckDuckGo.MaxResults,
		}))
	}
	a.registry.Register(tools.NewListToolsTool(a.registry))

	rt, err := runtime.NewBedrock(ctx, a.cfg.AWS.Region)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create model runtime: %w", err)
	}

	a.agent = agent.New(rt, a.registry, hooks, agent.Config{
		Model:             a.cfg.ModelID(),
		MaxTokens:         a.cfg.Agent.MaxTokens,
		Temperature:       a.cfg.Agent.Temperature,
		MaxToolIterations: a.cfg.Agent.MaxToolIterations,
	})

	logger.InfoCF("app", "Agent initialized", map[string]any{
		"model":   a.cfg.Agent.Model,
		"tools":   a.registry.Count(),
		"memory":  a.hasMem,
		"backend": a.cfg.Memory.Backend,
	})
	return a, nil
}
