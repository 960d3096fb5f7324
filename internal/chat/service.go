package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/morriswong/datachat/internal/assistant"
	"github.com/morriswong/datachat/internal/domain"
	"github.com/morriswong/datachat/internal/session"
	"github.com/morriswong/datachat/internal/tools"
)

// AssistantName and AssistantInstructions configure the remote assistant
// when none exists yet.
const (
	AssistantName = "Data Analysis Assistant"

	AssistantInstructions = `You are a data analysis assistant. Your job is to help analyze datasets and answer questions about them.
When analyzing data:
1. First, explore and understand the dataset structure
2. Clean and preprocess the data as needed
3. Perform the requested analysis
4. Create visualizations when appropriate
5. Explain your findings in clear, non-technical language

Always be concise and focus on the most important insights.`
)

// ErrFlagged is returned when moderation rejects a question. The turn is
// aborted before anything is appended or sent remotely.
var ErrFlagged = errors.New("question flagged by moderation")

// ErrUnknownFile is returned when a download targets a file the session
// does not track
var ErrUnknownFile = errors.New("file not tracked by session")

// Client is the remote-service surface the orchestrator drives. It is
// satisfied by *assistant.Client.
type Client interface {
	Moderate(ctx context.Context, input string) (bool, error)
	CreateThread(ctx context.Context) (string, error)
	UpdateThreadFiles(ctx context.Context, threadID string, fileIDs []string) error
	DeleteThread(ctx context.Context, threadID string) error
	CreateMessage(ctx context.Context, threadID, content string) error
	ListAssistantAttachments(ctx context.Context, threadID string) ([]string, error)
	StreamRun(ctx context.Context, threadID, assistantID string) (assistant.EventStream, error)
	SubmitToolOutputsStream(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (assistant.EventStream, error)
	UploadFile(ctx context.Context, filename string, data io.Reader) (assistant.File, error)
	DeleteFile(ctx context.Context, fileID string) error
	RetrieveFile(ctx context.Context, fileID string) (assistant.File, error)
	FileContent(ctx context.Context, fileID string) ([]byte, error)
}

// Service orchestrates one session's conversation with the remote
// assistant: uploads, thread lifecycle, run streaming, tool round-trips
// and reset.
type Service struct {
	client      Client
	dispatcher  *tools.Dispatcher
	assistantID string
}

// NewService creates the chat orchestrator
func NewService(client Client, dispatcher *tools.Dispatcher, assistantID string) *Service {
	return &Service{
		client:      client,
		dispatcher:  dispatcher,
		assistantID: assistantID,
	}
}

// Upload pushes one file to the remote service and records its identifier
// on the session. Files must be uploaded before the first question so
// thread creation can attach them.
func (s *Service) Upload(ctx context.Context, sess *session.Session, filename string, data io.Reader) (assistant.File, error) {
	file, err := s.client.UploadFile(ctx, filename, data)
	if err != nil {
		return assistant.File{}, fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	sess.AddFileIDs(file.ID)
	log.Info().Str("filename", filename).Str("file_id", file.ID).Msg("Uploaded file")
	return file, nil
}

// Ask drives one full question turn: moderation, transcript append, thread
// bootstrap, message submission, run streaming, tool round-trips, and the
// final generated-file sweep. Fragments reach the caller through emit as
// the run produces them.
func (s *Service) Ask(ctx context.Context, sess *session.Session, question string, emit FragmentSink) ([]domain.GeneratedFile, error) {
	flagged, err := s.client.Moderate(ctx, question)
	if err != nil {
		// Moderation being down should not block analysis
		log.Error().Err(err).Msg("Moderation check failed")
	}
	if flagged {
		return nil, ErrFlagged
	}

	sess.AppendMessage(domain.TextMessage(domain.RoleUser, question))

	threadID, err := s.ensureThread(ctx, sess)
	if err != nil {
		return nil, err
	}

	if err := s.client.CreateMessage(ctx, threadID, question); err != nil {
		return nil, fmt.Errorf("failed to submit message: %w", err)
	}

	stream, err := s.client.StreamRun(ctx, threadID, s.assistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	// Drive the stream; every pending tool request is dispatched and its
	// outputs submitted before the turn is complete.
	for {
		res, consumeErr := s.consumeStream(ctx, stream, emit)
		stream.Close()

		for _, msg := range res.messages {
			sess.AppendMessage(msg)
		}
		sess.AddGeneratedFileIDs(res.imageFileIDs...)

		if consumeErr != nil {
			return nil, fmt.Errorf("run stream failed: %w", consumeErr)
		}
		if res.pending == nil {
			break
		}

		outputs := s.dispatcher.Dispatch(ctx, res.pending)
		stream, err = s.client.SubmitToolOutputsStream(ctx, res.pending.ThreadID, res.pending.RunID, outputs)
		if err != nil {
			return nil, fmt.Errorf("failed to submit tool outputs: %w", err)
		}
	}

	if attachments, err := s.client.ListAssistantAttachments(ctx, threadID); err != nil {
		log.Error().Err(err).Msg("Failed to retrieve assistant attachments")
	} else {
		sess.AddGeneratedFileIDs(attachments...)
	}

	return s.GeneratedFiles(ctx, sess), nil
}

// ensureThread creates the remote thread on first use, attaching any
// uploaded files to its code interpreter. A thread always exists before a
// message is sent.
func (s *Service) ensureThread(ctx context.Context, sess *session.Session) (string, error) {
	if threadID := sess.ThreadID(); threadID != "" {
		return threadID, nil
	}

	threadID, err := s.client.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}

	if fileIDs := sess.FileIDs(); len(fileIDs) > 0 {
		if err := s.client.UpdateThreadFiles(ctx, threadID, fileIDs); err != nil {
			return "", fmt.Errorf("failed to attach files to thread: %w", err)
		}
	}

	sess.SetThreadID(threadID)
	log.Info().Str("thread_id", threadID).Str("session_id", sess.ID.String()).Msg("Created thread")
	return threadID, nil
}

// GeneratedFiles resolves the session's generated file IDs to downloadable
// metadata. Files that fail to resolve are skipped.
func (s *Service) GeneratedFiles(ctx context.Context, sess *session.Session) []domain.GeneratedFile {
	var files []domain.GeneratedFile
	for _, fileID := range sess.GeneratedFileIDs() {
		meta, err := s.client.RetrieveFile(ctx, fileID)
		if err != nil {
			log.Error().Err(err).Str("file_id", fileID).Msg("Failed to retrieve generated file")
			continue
		}
		files = append(files, domain.GeneratedFile{ID: meta.ID, Filename: meta.Filename})
	}
	return files
}

// DownloadFile reads the content of a generated file the session tracks
func (s *Service) DownloadFile(ctx context.Context, sess *session.Session, fileID string) (string, []byte, error) {
	tracked := false
	for _, id := range sess.GeneratedFileIDs() {
		if id == fileID {
			tracked = true
			break
		}
	}
	if !tracked {
		return "", nil, ErrUnknownFile
	}

	meta, err := s.client.RetrieveFile(ctx, fileID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to retrieve file: %w", err)
	}
	content, err := s.client.FileContent(ctx, fileID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return meta.Filename, content, nil
}

// Reset deletes the remote thread and every tracked file, then clears the
// session. Remote delete failures are logged and never stop the reset.
func (s *Service) Reset(ctx context.Context, sess *session.Session) {
	if threadID := sess.ThreadID(); threadID != "" {
		if err := s.client.DeleteThread(ctx, threadID); err != nil {
			log.Error().Err(err).Str("thread_id", threadID).Msg("Failed to delete thread")
		} else {
			log.Info().Str("thread_id", threadID).Msg("Deleted thread")
		}
	}

	for _, fileID := range append(sess.FileIDs(), sess.GeneratedFileIDs()...) {
		if err := s.client.DeleteFile(ctx, fileID); err != nil {
			log.Error().Err(err).Str("file_id", fileID).Msg("Failed to delete file")
		} else {
			log.Info().Str("file_id", fileID).Msg("Deleted file")
		}
	}

	sess.Clear()
}
