// Command agentd serves the chat orchestration backend.
//
// It wires an Azure OpenAI chat deployment, the Azure AI Foundry generator
// agents, markdown conversion, Azure Boards tools, and Azure Blob chat
// persistence behind an HTTP API.
//
// Usage:
//
//	export AZURE_OPENAI_ENDPOINT=https://<resource>.openai.azure.com
//	export AZURE_OPENAI_DEPLOYMENT=gpt-4o
//	export AZURE_OPENAI_API_KEY=<key>          # empty → Azure AD
//	export AZURE_STORAGE_CONNECTION_STRING=... # optional, enables persistence
//	go run ./cmd/agentd
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/joho/godotenv"

	"github.com/gurdaan/agentic-workflow-backend/internal/azopenai"
	"github.com/gurdaan/agentic-workflow-backend/internal/blobstore"
	"github.com/gurdaan/agentic-workflow-backend/internal/boards"
	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
	"github.com/gurdaan/agentic-workflow-backend/internal/foundry"
	"github.com/gurdaan/agentic-workflow-backend/internal/httpapi"
	"github.com/gurdaan/agentic-workflow-backend/internal/markdown"
	"github.com/gurdaan/agentic-workflow-backend/internal/session"
)

func main() {
	// Load .env file if present (ignored if missing).
	_ = godotenv.Load()

	// Enable debug logging if requested
	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, cred := newChatClient()

	var opts []session.Option
	opts = append(opts, session.WithTools(newTools(cred)...))

	if connStr := os.Getenv("AZURE_STORAGE_CONNECTION_STRING"); connStr != "" {
		store, err := blobstore.New(ctx, connStr)
		if err != nil {
			slog.Warn("chat storage unavailable, running without persistence", "error", err)
		} else {
			opts = append(opts, session.WithStore(store))
		}
	} else {
		slog.Info("AZURE_STORAGE_CONNECTION_STRING not set, running without persistence")
	}

	manager := session.NewManager(client, opts...)
	if err := manager.Initialize(ctx); err != nil {
		log.Fatalf("initialize session manager: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpapi.New(manager),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

// newChatClient creates the Azure OpenAI client, choosing between api-key and
// Azure AD authentication based on which environment variables are set. The
// credential is returned for reuse by the Foundry agent client.
func newChatClient() (chat.Client, azcore.TokenCredential) {
	endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
	if endpoint == "" {
		log.Fatal("AZURE_OPENAI_ENDPOINT is required")
	}

	deployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT")
	if deployment == "" {
		deployment = "gpt-4o"
	}

	if key := os.Getenv("AZURE_OPENAI_API_KEY"); key != "" {
		slog.Info("using API key authentication", "endpoint", endpoint, "deployment", deployment)
		return azopenai.New(endpoint, deployment, azopenai.WithAPIKey(key)), nil
	}

	slog.Info("using Azure AD authentication (DefaultAzureCredential)", "endpoint", endpoint, "deployment", deployment)
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		log.Fatalf("create azure credential: %v", err)
	}
	return azopenai.New(endpoint, deployment, azopenai.WithCredential(cred)), cred
}

// newTools assembles the orchestrator's tool set from the environment.
// Missing configuration disables the affected tools instead of failing
// startup.
func newTools(cred azcore.TokenCredential) []chat.Tool {
	tools := []chat.Tool{markdown.Tool()}

	if endpoint := os.Getenv("AI_FOUNDRY_ENDPOINT"); endpoint != "" {
		if cred == nil {
			var err error
			cred, err = azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				log.Fatalf("create azure credential for AI Foundry: %v", err)
			}
		}
		agents := foundry.Tools(foundry.New(endpoint, cred), foundry.AgentIDs{
			UserStory: os.Getenv("AI_FOUNDRY_ASSISTANT_ID"),
			TestCases: os.Getenv("AI_FOUNDRY_TESTCASES_ASSISTANT_ID"),
			DevTasks:  os.Getenv("AI_FOUNDRY_DEV_TASKS_ASSISTANT_ID"),
		})
		tools = append(tools, agents...)
		slog.Info("AI Foundry generator agents enabled", "count", len(agents))
	} else {
		slog.Info("AI_FOUNDRY_ENDPOINT not set, generator agents disabled")
	}

	orgURL := os.Getenv("AZURE_DEVOPS_ORGANIZATION_URL")
	project := os.Getenv("AZURE_DEVOPS_PROJECT")
	pat := os.Getenv("AZURE_DEVOPS_PAT")
	if orgURL != "" && project != "" && pat != "" {
		tools = append(tools, boards.Tools(boards.New(orgURL, project, pat))...)
		slog.Info("Azure Boards tools enabled", "project", project)
	} else {
		slog.Info("Azure DevOps not fully configured, work item tools disabled")
	}

	return tools
}
