package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/morriswong/datachat/internal/assistant"
	"github.com/morriswong/datachat/internal/domain"
	"github.com/morriswong/datachat/internal/tools"
)

const (
	statusRunningAnalysis = "[Running data analysis...]"
	statusAnalysisFailed  = "[Analysis failed. Please try again.]"
)

// FragmentSink receives displayable fragments as a run stream produces them
type FragmentSink func(domain.Fragment) error

// streamResult is what one pass over a run stream produced: transcript
// entries, generated image file IDs, and the tool request a run stopped on,
// if any. A nil pending means the run settled.
type streamResult struct {
	pending         *tools.Request
	messages        []domain.Message
	imageFileIDs    []string
	contentProduced bool
}

// consumeStream drives one event stream to completion or to the point where
// the run demands tool outputs. Text deltas are emitted as they arrive;
// image references are fetched synchronously and emitted as decoded bytes.
// Every other event type is ignored. The stream is not restartable.
func (s *Service) consumeStream(ctx context.Context, stream assistant.EventStream, emit FragmentSink) (*streamResult, error) {
	res := &streamResult{}
	var text strings.Builder

	flushText := func() {
		if text.Len() > 0 {
			res.messages = append(res.messages, domain.TextMessage(domain.RoleAssistant, text.String()))
			text.Reset()
		}
	}

	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			flushText()
			return res, err
		}

		switch ev.Type {
		case assistant.EventMessageDelta:
			var delta assistant.MessageDelta
			if err := json.Unmarshal(ev.Data, &delta); err != nil {
				log.Error().Err(err).Msg("Failed to decode message delta")
				continue
			}
			for _, content := range delta.Delta.Content {
				switch content.Type {
				case "text":
					if content.Text == nil {
						continue
					}
					res.contentProduced = true
					text.WriteString(content.Text.Value)
					if err := emit(domain.TextFragment(content.Text.Value)); err != nil {
						flushText()
						return res, err
					}
				case "image_file":
					if content.ImageFile == nil {
						continue
					}
					fileID := content.ImageFile.FileID
					data, err := s.client.FileContent(ctx, fileID)
					if err != nil {
						log.Error().Err(err).Str("file_id", fileID).Msg("Failed to fetch generated image")
						continue
					}
					res.contentProduced = true
					res.imageFileIDs = append(res.imageFileIDs, fileID)
					flushText()
					res.messages = append(res.messages, domain.ImageMessage(fileID))
					if err := emit(domain.ImageFragment(fileID, data)); err != nil {
						return res, err
					}
				}
			}

		case assistant.EventRunRequiresAction:
			var run assistant.Run
			if err := json.Unmarshal(ev.Data, &run); err != nil {
				flushText()
				return res, fmt.Errorf("failed to decode requires_action event: %w", err)
			}
			if run.RequiredAction == nil {
				continue
			}
			res.pending = &tools.Request{
				ThreadID: run.ThreadID,
				RunID:    run.ID,
				Calls:    run.RequiredAction.SubmitToolOutputs.ToolCalls,
			}
			if !res.contentProduced {
				if err := emit(domain.StatusFragment(statusRunningAnalysis)); err != nil {
					flushText()
					return res, err
				}
			}
			flushText()
			return res, nil

		case assistant.EventRunFailed:
			var run assistant.Run
			if err := json.Unmarshal(ev.Data, &run); err == nil && run.LastError != nil {
				log.Error().Str("run_id", run.ID).Str("code", run.LastError.Code).Str("reason", run.LastError.Message).Msg("Run failed")
			} else {
				log.Error().Msg("Run failed")
			}
			flushText()
			if err := emit(domain.StatusFragment(statusAnalysisFailed)); err != nil {
				return res, err
			}
			return res, nil
		}
	}

	flushText()
	return res, nil
}
