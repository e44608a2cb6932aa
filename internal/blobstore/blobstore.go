// Package blobstore persists transcript snapshots to Azure Blob Storage.
// One blob per session id, JSON documents in the chat-history container.
package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/gurdaan/agentic-workflow-backend/internal/session"
)

const (
	defaultContainer = "chat-history"

	keyPrefix = "chat_session_"
	keySuffix = ".json"
)

// Store implements [session.SnapshotStore] on Azure Blob Storage.
type Store struct {
	client    *azblob.Client
	container string
}

// Verify interface compliance at compile time.
var _ session.SnapshotStore = (*Store)(nil)

// Option configures a [Store].
type Option func(*Store)

// WithContainer overrides the container name.
func WithContainer(name string) Option {
	return func(s *Store) { s.container = name }
}

// New creates a Store from a storage account connection string and ensures
// the container exists.
func New(ctx context.Context, connectionString string, opts ...Option) (*Store, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("storage connection string is required")
	}

	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	s := &Store{client: client, container: defaultContainer}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureContainer(ctx); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "chat storage initialized", "container", s.container)
	return s, nil
}

func (s *Store) ensureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create container %q: %w", s.container, err)
	}
	slog.InfoContext(ctx, "created container", "container", s.container)
	return nil
}

// snapshotDocument is the stored JSON shape. The session id travels inside
// the document so it never has to be re-derived from the storage key.
type snapshotDocument struct {
	SessionID    string                      `json:"session_id"`
	Timestamp    time.Time                   `json:"timestamp"`
	MessageCount int                         `json:"message_count"`
	ChatHistory  []session.TranscriptMessage `json:"chat_history"`
}

// Save uploads the transcript as the current snapshot for the session id
// and returns the blob name.
func (s *Store) Save(ctx context.Context, sessionID string, messages []session.TranscriptMessage) (string, error) {
	doc := snapshotDocument{
		SessionID:    sessionID,
		Timestamp:    time.Now(),
		MessageCount: len(messages),
		ChatHistory:  messages,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := blobKey(sessionID)
	_, err = s.client.UploadBuffer(ctx, s.container, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr("application/json")},
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot %q: %w", key, err)
	}

	slog.InfoContext(ctx, "chat history saved", "key", key, "messages", len(messages))
	return key, nil
}

// Load downloads a snapshot by blob name.
func (s *Store) Load(ctx context.Context, key string) (*session.Snapshot, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", session.ErrSnapshotNotFound, key)
		}
		return nil, fmt.Errorf("download snapshot %q: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", key, err)
	}

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", key, err)
	}

	slog.InfoContext(ctx, "chat history loaded", "key", key, "messages", len(doc.ChatHistory))
	return &session.Snapshot{
		SessionID: doc.SessionID,
		SavedAt:   doc.Timestamp,
		Messages:  doc.ChatHistory,
	}, nil
}

// List returns stored snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]session.SnapshotInfo, error) {
	var infos []session.SnapshotInfo

	pager := s.client.NewListBlobsFlatPager(s.container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil || !strings.HasSuffix(*item.Name, keySuffix) {
				continue
			}
			info := session.SnapshotInfo{
				Key:       *item.Name,
				SessionID: SessionIDFromKey(*item.Name),
			}
			if item.Properties != nil {
				if item.Properties.LastModified != nil {
					info.LastModified = *item.Properties.LastModified
				}
				if item.Properties.ContentLength != nil {
					info.Size = *item.Properties.ContentLength
				}
			}
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastModified.After(infos[j].LastModified)
	})

	slog.InfoContext(ctx, "listed chat sessions", "count", len(infos))
	return infos, nil
}

// Delete removes a snapshot blob. Returns false when the blob is missing.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	_, err := s.client.DeleteBlob(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			slog.WarnContext(ctx, "snapshot not found for deletion", "key", key)
			return false, nil
		}
		return false, fmt.Errorf("delete snapshot %q: %w", key, err)
	}

	slog.InfoContext(ctx, "chat session deleted", "key", key)
	return true, nil
}

// blobKey builds the blob name for a session id.
func blobKey(sessionID string) string {
	return keyPrefix + sessionID + keySuffix
}

// SessionIDFromKey recovers the session id from a blob name. Keys carry no
// timestamp, so trimming the fixed prefix and suffix is exact; loads still
// prefer the explicit session_id field inside the document.
func SessionIDFromKey(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), keySuffix)
}
