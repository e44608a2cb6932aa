// Package session owns the active conversation transcript and its
// lifecycle: seeding, query processing, checkpointing to durable storage,
// and restoring the most recent session across process restarts.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
	"github.com/gurdaan/agentic-workflow-backend/internal/envelope"
)

const defaultSessionID = "main_session"

// Fixed generation settings for every query: short, low-variance JSON
// replies.
const maxResponseTokens = 2000

const responseTemperature = 0.1

// Manager maintains exactly one active transcript and session id. All
// operations serialize behind a mutex: a single logical conversation is
// processed per instance, concurrent callers queue.
type Manager struct {
	mu          sync.Mutex
	client      chat.Client
	store       SnapshotStore
	tools       []chat.Tool
	invocation  chat.InvocationConfig
	transcript  []chat.Message
	sessionID   string
	initialized bool
}

// Option configures a [Manager].
type Option func(*Manager)

// WithStore attaches a snapshot store. Without one the manager runs with
// persistence disabled.
func WithStore(store SnapshotStore) Option {
	return func(m *Manager) { m.store = store }
}

// WithTools registers the tools exposed to the model on every query.
func WithTools(tools ...chat.Tool) Option {
	return func(m *Manager) { m.tools = append(m.tools, tools...) }
}

// WithInvocationConfig overrides the tool-calling loop configuration.
func WithInvocationConfig(cfg chat.InvocationConfig) Option {
	return func(m *Manager) { m.invocation = cfg }
}

// NewManager creates a Manager around the given chat client.
func NewManager(client chat.Client, opts ...Option) *Manager {
	m := &Manager{
		client:     client,
		sessionID:  defaultSessionID,
		invocation: chat.DefaultInvocationConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize is idempotent setup: seeds a fresh transcript with the system
// policy message and best-effort restores the most recently saved session.
// A missing or unreachable store degrades persistence, never startup.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializeLocked(ctx)
}

func (m *Manager) initializeLocked(ctx context.Context) error {
	if m.initialized {
		slog.DebugContext(ctx, "session manager already initialized")
		return nil
	}

	m.transcript = []chat.Message{chat.NewSystemMessage(systemPrompt)}

	if m.store != nil {
		if err := m.restoreMostRecentLocked(ctx); err != nil {
			slog.WarnContext(ctx, "could not restore previous session, continuing with a fresh one", "error", err)
		}
	}

	m.initialized = true
	slog.InfoContext(ctx, "session manager ready",
		"session_id", m.sessionID,
		"persistence", m.store != nil,
	)
	return nil
}

// ProcessQuery appends the query to the transcript, runs the model with the
// registered tools, normalizes the reply, appends the result, and returns
// the envelope. Both checkpoints are best-effort and independent.
func (m *Manager) ProcessQuery(ctx context.Context, query string) (envelope.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.initializeLocked(ctx); err != nil {
		return envelope.Envelope{}, err
	}

	slog.InfoContext(ctx, "processing query", "session_id", m.sessionID, "query_len", len(query))

	m.transcript = append(m.transcript, chat.NewUserMessage(query))
	m.checkpointLocked(ctx, "after user message")

	maxTokens := maxResponseTokens
	temperature := responseTemperature
	opts := &chat.Options{
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Tools:       m.tools,
		ToolChoice:  chat.ToolChoiceAuto,
	}

	// RunWithTools appends tool-loop messages to its working slice; hand it
	// a copy so the transcript only ever gains the normalized result.
	history := make([]chat.Message, len(m.transcript))
	copy(history, m.transcript)

	resp, err := chat.RunWithTools(ctx, m.client, history, opts, m.invocation)
	if err != nil {
		return envelope.Envelope{}, fmt.Errorf("run model pipeline: %w", err)
	}

	env := envelope.Normalize(resp.Text())

	m.transcript = append(m.transcript, chat.NewAssistantMessage(env.Content))
	m.checkpointLocked(ctx, "after assistant message")

	slog.InfoContext(ctx, "query completed", "session_id", m.sessionID, "metadata", env.Metadata)
	return env, nil
}

// NewSession persists the current transcript when it has user content,
// replaces it with a fresh seeded one under the derived id, and immediately
// checkpoints the new session so it appears in listings right away.
func (m *Manager) NewSession(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		name = "Chat " + time.Now().Format("01/02 15:04")
	}

	if m.store != nil && m.hasActiveContentLocked() {
		if _, err := m.store.Save(ctx, m.sessionID, m.transcriptMessagesLocked()); err != nil {
			return "", fmt.Errorf("save previous session %q: %w", m.sessionID, err)
		}
		slog.InfoContext(ctx, "saved previous session", "session_id", m.sessionID)
	}

	m.sessionID = normalizeSessionID(name)
	m.transcript = []chat.Message{chat.NewSystemMessage(systemPrompt)}

	m.checkpointLocked(ctx, "new session")
	slog.InfoContext(ctx, "created new session", "session_id", m.sessionID)
	return m.sessionID, nil
}

// SwitchSession persists the current transcript when non-empty, then loads
// the most recent snapshot whose session id contains id, replaying its
// messages in order. A session id with no snapshot is an implicit create.
func (m *Manager) SwitchSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil && m.hasActiveContentLocked() {
		if _, err := m.store.Save(ctx, m.sessionID, m.transcriptMessagesLocked()); err != nil {
			return fmt.Errorf("save current session %q: %w", m.sessionID, err)
		}
		slog.InfoContext(ctx, "saved current session", "session_id", m.sessionID)
	}

	if m.store == nil {
		m.startFreshLocked(ctx, id)
		return nil
	}

	infos, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	var latest *SnapshotInfo
	for i := range infos {
		if strings.Contains(infos[i].SessionID, id) {
			latest = &infos[i]
			break // List is newest-first
		}
	}

	if latest == nil {
		m.startFreshLocked(ctx, id)
		return nil
	}

	snap, err := m.store.Load(ctx, latest.Key)
	if err != nil {
		return fmt.Errorf("load session %q: %w", id, err)
	}

	replayed := replay(snap.Messages)
	if len(replayed) == 0 {
		m.startFreshLocked(ctx, id)
		return nil
	}

	m.transcript = replayed
	m.sessionID = id
	slog.InfoContext(ctx, "switched session", "session_id", id, "messages", len(replayed))
	return nil
}

// startFreshLocked resets the transcript under the given id.
func (m *Manager) startFreshLocked(ctx context.Context, id string) {
	m.sessionID = normalizeSessionID(id)
	m.transcript = []chat.Message{chat.NewSystemMessage(systemPrompt)}
	slog.InfoContext(ctx, "created new session on switch", "session_id", m.sessionID)
}

// restoreMostRecentLocked loads the newest stored session so a process
// restart resumes the prior conversation. A corrupt or empty snapshot keeps
// the seeded default transcript.
func (m *Manager) restoreMostRecentLocked(ctx context.Context) error {
	infos, err := m.store.List(ctx)
	if err != nil {
		// Startup probe failed: run degraded, later persistence calls
		// surface ErrStorageUnavailable.
		m.store = nil
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if len(infos) == 0 {
		slog.InfoContext(ctx, "no existing sessions found, starting fresh")
		return nil
	}

	newest := infos[0]
	snap, err := m.store.Load(ctx, newest.Key)
	if err != nil {
		return fmt.Errorf("load most recent session: %w", err)
	}

	replayed := replay(snap.Messages)
	if len(replayed) == 0 {
		slog.InfoContext(ctx, "most recent snapshot empty, keeping default transcript", "key", newest.Key)
		return nil
	}

	m.transcript = replayed
	m.sessionID = snap.SessionID
	slog.InfoContext(ctx, "restored most recent session",
		"session_id", m.sessionID,
		"messages", len(replayed),
	)
	return nil
}

// replay rebuilds a transcript from stored messages through the
// role-appropriate constructors, preserving order. Unknown roles are
// dropped.
func replay(messages []TranscriptMessage) []chat.Message {
	var out []chat.Message
	for _, msg := range messages {
		switch chat.Role(strings.ToLower(msg.Role)) {
		case chat.RoleSystem:
			out = append(out, chat.NewSystemMessage(msg.Content))
		case chat.RoleUser:
			out = append(out, chat.NewUserMessage(msg.Content))
		case chat.RoleAssistant:
			out = append(out, chat.NewAssistantMessage(msg.Content))
		}
	}
	return out
}

// Checkpoint explicitly persists the current transcript, returning the
// storage key.
func (m *Manager) Checkpoint(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return "", ErrStorageUnavailable
	}
	key, err := m.store.Save(ctx, m.sessionID, m.transcriptMessagesLocked())
	if err != nil {
		return "", fmt.Errorf("save session %q: %w", m.sessionID, err)
	}
	return key, nil
}

// Sessions lists stored snapshots, newest first.
func (m *Manager) Sessions(ctx context.Context) ([]SnapshotInfo, error) {
	m.mu.Lock()
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return nil, ErrStorageUnavailable
	}
	return store.List(ctx)
}

// LoadSnapshot retrieves a stored snapshot by key.
func (m *Manager) LoadSnapshot(ctx context.Context, key string) (*Snapshot, error) {
	m.mu.Lock()
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return nil, ErrStorageUnavailable
	}
	return store.Load(ctx, key)
}

// DeleteSnapshot removes a stored snapshot by key.
func (m *Manager) DeleteSnapshot(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return false, ErrStorageUnavailable
	}
	return store.Delete(ctx, key)
}

// SessionID returns the active session id.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// MessageCount returns the number of messages in the active transcript.
func (m *Manager) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transcript)
}

// HasActiveContent reports whether the transcript holds any non-system
// message. Used to avoid persisting empty sessions.
func (m *Manager) HasActiveContent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasActiveContentLocked()
}

func (m *Manager) hasActiveContentLocked() bool {
	for _, msg := range m.transcript {
		if msg.Role != chat.RoleSystem {
			return true
		}
	}
	return false
}

// checkpointLocked persists the transcript best-effort: failures are logged
// and never propagated into the query path.
func (m *Manager) checkpointLocked(ctx context.Context, stage string) {
	if m.store == nil {
		return
	}
	key, err := m.store.Save(ctx, m.sessionID, m.transcriptMessagesLocked())
	if err != nil {
		slog.WarnContext(ctx, "auto-save failed", "stage", stage, "session_id", m.sessionID, "error", err)
		return
	}
	slog.DebugContext(ctx, "auto-saved transcript", "stage", stage, "key", key)
}

func (m *Manager) transcriptMessagesLocked() []TranscriptMessage {
	out := make([]TranscriptMessage, 0, len(m.transcript))
	for _, msg := range m.transcript {
		out = append(out, TranscriptMessage{
			Role:      string(msg.Role),
			Content:   msg.Text(),
			Timestamp: msg.Timestamp,
		})
	}
	return out
}

// normalizeSessionID replaces spaces and path separators so ids are safe to
// embed in storage keys.
func normalizeSessionID(name string) string {
	return strings.NewReplacer(" ", "_", "/", "_").Replace(name)
}
