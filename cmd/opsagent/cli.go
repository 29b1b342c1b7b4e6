package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/opsforge/opsagent/pkg/config"
	"github.com/opsforge/opsagent/pkg/memstore"
	"github.com/opsforge/opsagent/pkg/paramstore"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Conversational AWS DevOps assistant with long-term memory",
		Long: strings.TrimSpace(`opsagent is an AWS DevOps assistant backed by Claude on Bedrock.

It remembers preferences and facts across sessions through AgentCore Memory
and injects relevant context into each conversation.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().String("config", config.DefaultPath(), "Config file path")

	root.AddCommand(newChatCommand())
	root.AddCommand(newSetupCommand())
	root.AddCommand(newMemoryCommand())
	root.AddCommand(newModelsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func configPathFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	return path
}

func newChatCommand() *cobra.Command {
	var (
		message string
		model   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive DevOps chat session",
		Long:  "Run an interactive chat session or send a one-shot message to the assistant.",
		Example: strings.Join([]string{
			"  opsagent chat",
			"  opsagent chat --model claude-sonnet-4",
			"  opsagent chat --message \"why is my ASG not scaling?\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newChatApp(ctx, configPathFlag(cmd), model)
			if err != nil {
				return err
			}
			defer a.Close()

			if message != "" {
				response, err := a.agent.ProcessMessage(ctx, message)
				if err != nil {
					return err
				}
				fmt.Printf("\n%s > %s\n", appName, response)
				return nil
			}

			return interactiveChat(ctx, a)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot prompt to send to the assistant")
	cmd.Flags().StringVar(&model, "model", "", "Model key for this session (see: opsagent models)")

	return cmd
}

func interactiveChat(ctx context.Context, a *app) error {
	if !a.hasMem {
		fmt.Println("⚠️  Memory is unavailable; the assistant will not remember this session.")
	}
	fmt.Printf("\n🚀 %s: Ask me about DevOps on AWS! Type 'exit' to quit.\n\n", appName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You > ",
		HistoryFile:     filepath.Join(os.TempDir(), ".opsagent_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye! Happy DevOpsing!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			fmt.Printf("\n%s > Please ask me something about DevOps on AWS!\n\n", appName)
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit", "bye":
			fmt.Println("Happy DevOpsing!")
			return nil
		}

		response, err := a.agent.ProcessMessage(ctx, input)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s > %s\n\n", appName, response)
	}
}

func newSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Check configuration and memory parameter wiring",
		Long:  "Verify the config file, parameter store entry, and memory backend reachability.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			path := configPathFlag(cmd)
			a, err := newApp(ctx, path, "")
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Printf("Config file:       %s\n", path)
			fmt.Printf("Memory backend:    %s\n", a.cfg.Memory.Backend)
			fmt.Printf("Region:            %s\n", a.cfg.AWS.Region)
			fmt.Printf("Model:             %s (%s)\n", a.cfg.Agent.Model, a.cfg.ModelID())
			fmt.Printf("Parameter path:    %s\n", a.cfg.Memory.ParameterPath)

			id, err := a.params.Get(ctx, a.cfg.Memory.ParameterPath)
			switch {
			case err == paramstore.ErrNotFound:
				fmt.Println("Cached memory id:  (not set)")
			case err != nil:
				fmt.Printf("Cached memory id:  error: %v\n", err)
			default:
				fmt.Printf("Cached memory id:  %s\n", id)
				if _, err := a.store.GetResource(ctx, id); err != nil {
					fmt.Printf("Resource check:    FAILED: %v\n", err)
				} else {
					fmt.Println("Resource check:    OK")
				}
			}
			return nil
		},
	}
}

func newMemoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "memory",
		Short: "Resolve the memory resource and show its status",
		Long:  "Run the full memory resolution (cache, discovery, creation) and report the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newApp(ctx, configPathFlag(cmd), "")
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.resolveMemory(ctx) {
				fmt.Println("Memory is unavailable. Check credentials and region, then retry.")
				return nil
			}

			fmt.Printf("Memory id: %s\n", a.memoryID)
			resource, err := a.store.GetResource(ctx, a.memoryID)
			if err != nil {
				return fmt.Errorf("describe memory resource: %w", err)
			}
			fmt.Printf("Status:    %s\n", resource.Status)
			printStrategies(resource.Strategies)
			return nil
		},
	}
}

func printStrategies(strategies []memstore.Strategy) {
	if len(strategies) == 0 {
		fmt.Println("Strategies: (none)")
		return
	}
	fmt.Println("Strategies:")
	for _, st := range strategies {
		namespace := ""
		if len(st.Namespaces) > 0 {
			namespace = st.Namespaces[0]
		}
		fmt.Printf("  - %s (%s): %s\n", st.Name, st.Type, namespace)
	}
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPathFlag(cmd))
			if err != nil {
				return err
			}

			fmt.Println("Available models:")
			for _, m := range config.AvailableModels {
				marker := " "
				if m.Key == cfg.Agent.Model {
					marker = "*"
				}
				fmt.Printf("%s %-22s %s\n", marker, m.Key, m.Description)
			}
			fmt.Println("\n* = current model. Change with OPSAGENT_AGENT_MODEL or chat --model.")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build/version metadata",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	}
}
