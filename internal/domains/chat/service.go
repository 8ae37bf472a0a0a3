package chat

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/ollama/ollama/api"
	"github.com/seslichat/sesli/internal/domains/history"
	"github.com/seslichat/sesli/internal/types"
	"github.com/seslichat/sesli/pkg/Logger"
	llm "github.com/seslichat/sesli/pkg/llm/ollama"
)

var ErrSaveTurn = errors.New("failed to save chat history")

// turn lifecycle
const (
	stateStarted    = "started"
	stateStreaming  = "streaming"
	stateFinalizing = "finalizing"
	statePersisted  = "persisted"
	stateAborted    = "aborted"

	eventStream   = "stream"
	eventFinalize = "finalize"
	eventPersist  = "persist"
	eventAbort    = "abort"
)

func newTurnFSM() *fsm.FSM {
	return fsm.NewFSM(
		stateStarted,
		fsm.Events{
			{Name: eventStream, Src: []string{stateStarted}, Dst: stateStreaming},
			{Name: eventFinalize, Src: []string{stateStreaming}, Dst: stateFinalizing},
			{Name: eventPersist, Src: []string{stateFinalizing}, Dst: statePersisted},
			{Name: eventAbort, Src: []string{stateStarted, stateStreaming, stateFinalizing}, Dst: stateAborted},
		},
		fsm.Callbacks{},
	)
}

// ModelStream drives the inference backend as a lazy fragment sequence.
type ModelStream interface {
	StreamChat(ctx context.Context, model string, history []api.Message) (<-chan llm.Fragment, error)
}

// Synthesizer renders finished text into a retrievable audio resource.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang, requestID string) (string, error)
}

// LanguageDetector returns a language code for finished text.
type LanguageDetector func(text string) string

// TurnRequest carries one resolved conversation turn into the pipeline.
type TurnRequest struct {
	ChannelID string
	UserID    string
	UserText  string
	FromAudio bool
	// context-window history snapshot for the model call, oldest first
	History []types.Turn
	Model   string
}

// Service assembles one response turn: streams partial model output to
// the caller while accumulating the full reply, then synthesizes audio
// and persists the finished exchange.
type Service interface {
	HandleTurn(ctx context.Context, req TurnRequest, out Emitter) error
}

// lockStripes bounds the lock set regardless of how many channels the
// server ever sees; channels sharing a stripe serialize against each
// other, which is harmless.
const lockStripes = 64

type service struct {
	llm    ModelStream
	tts    Synthesizer
	detect LanguageDetector
	store  history.Service
	logger *Logger.Logger

	// serializes writers per channel so concurrent turns on the same
	// channel cannot lose each other's updates
	channelLocks [lockStripes]sync.Mutex
}

func New(
	llmStream ModelStream,
	tts Synthesizer,
	detect LanguageDetector,
	store history.Service,
	logger *Logger.Logger,
) Service {
	return &service{
		llm:    llmStream,
		tts:    tts,
		detect: detect,
		store:  store,
		logger: logger,
	}
}

func (s *service) channelLock(channelID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(channelID))
	return &s.channelLocks[h.Sum32()%lockStripes]
}

// HandleTurn implements Service.
func (s *service) HandleTurn(ctx context.Context, req TurnRequest, out Emitter) error {
	machine := newTurnFSM()

	// the initial framing record goes out before any model interaction
	start := startRecord{}
	if req.FromAudio {
		start.ResolvedText = req.UserText
	}
	if err := out.Emit(encodeStartRecord(start)); err != nil {
		_ = machine.Event(ctx, eventAbort)
		return fmt.Errorf("emit start record: %w", err)
	}
	if err := out.Emit("\n"); err != nil {
		_ = machine.Event(ctx, eventAbort)
		return fmt.Errorf("emit start record: %w", err)
	}

	msgs := types.TurnsToMessages(req.History)
	msgs = append(msgs, api.Message{Role: string(types.RoleUser), Content: req.UserText})

	if err := machine.Event(ctx, eventStream); err != nil {
		return err
	}

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	fragments, err := s.llm.StreamChat(streamCtx, req.Model, msgs)
	if err != nil {
		// preconditions are validated upstream; this is a last resort
		s.logger.Errorf("model stream rejected: %v", err)
		_ = out.Emit(err.Error())
		_ = machine.Event(ctx, eventAbort)
		return err
	}

	accumulated := s.consume(streamCtx, cancelStream, fragments, out)

	// a caller disconnect must not lose the accumulated reply; the fsm
	// rejects events on a canceled context, so everything past streaming
	// runs detached from the request
	finalCtx := context.WithoutCancel(ctx)

	if err := machine.Event(finalCtx, eventFinalize); err != nil {
		return err
	}

	if strings.TrimSpace(accumulated) == "" {
		s.logger.Errorf("no response received from model for channel %s", req.ChannelID)
		_ = machine.Event(finalCtx, eventAbort)
		return nil
	}

	audioURL := s.synthesize(finalCtx, accumulated, req.ChannelID, out)

	if err := s.persist(finalCtx, req, accumulated, audioURL); err != nil {
		s.logger.Errorf("persisting turn for channel %s: %v", req.ChannelID, err)
		_ = out.Emit("\n" + ErrSaveTurn.Error())
		_ = machine.Event(finalCtx, eventAbort)
		return fmt.Errorf("%w: %v", ErrSaveTurn, err)
	}

	return machine.Event(finalCtx, eventPersist)
}

// consume forwards fragments in arrival order while accumulating them.
// A mid-stream error becomes a final inline text chunk; a failed Emit
// means the caller is gone, so forwarding stops but the accumulated
// text is kept.
func (s *service) consume(ctx context.Context, cancel context.CancelFunc, fragments <-chan llm.Fragment, out Emitter) string {
	var sb strings.Builder
	for frag := range fragments {
		if frag.Err != nil {
			s.logger.Errorf("error during response streaming: %v", frag.Err)
			_ = out.Emit(frag.Err.Error())
			cancel()
			break
		}
		if frag.Content == "" {
			continue
		}
		sb.WriteString(frag.Content)
		if err := out.Emit(frag.Content); err != nil {
			s.logger.Warnf("caller went away mid-stream: %v", err)
			cancel()
			break
		}
	}
	return sb.String()
}

// synthesize is best-effort: on success the audio-ready record is
// emitted after the last content fragment, on failure the turn simply
// proceeds without audio.
func (s *service) synthesize(ctx context.Context, text, channelID string, out Emitter) string {
	lang := s.detect(text)
	requestID := uuid.NewString()

	audioURL, err := s.tts.Synthesize(ctx, text, lang, requestID)
	if err != nil {
		s.logger.Errorf("audio generation failed: %v", err)
		return ""
	}

	rec := audioRecord{AudioURL: audioURL, ChannelID: channelID}
	if err := out.Emit(encodeAudioRecord(rec)); err != nil {
		s.logger.Warnf("could not deliver audio record: %v", err)
	}
	return audioURL
}

func (s *service) persist(ctx context.Context, req TurnRequest, accumulated, audioURL string) error {
	lock := s.channelLock(req.ChannelID)
	lock.Lock()
	defer lock.Unlock()

	full, err := s.store.Load(ctx, req.UserID, req.ChannelID, false)
	if err != nil {
		return err
	}
	full = append(full,
		types.Turn{Role: types.RoleUser, Content: req.UserText},
		types.Turn{Role: types.RoleAssistant, Content: strings.TrimSpace(accumulated), AudioURL: audioURL},
	)
	return s.store.Save(ctx, req.UserID, req.ChannelID, full)
}
