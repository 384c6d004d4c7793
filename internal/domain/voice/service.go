package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/language"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/domain/translation"
	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const (
	tableRecordings = "tts_recordings"
	tableUsers      = "users"
	maxVoiceName    = 100
)

// Users is the part of the user service voice needs.
type Users interface {
	Get(ctx context.Context, id string) (*user.User, error)
	UpdateVoice(ctx context.Context, id string, update user.VoiceUpdate) (*user.User, error)
}

// Translator renders content in another language before it is spoken.
type Translator interface {
	ForItem(ctx context.Context, item *content.Item, lang string) (*translation.Translation, error)
}

// Service clones voices and synthesizes speech.
type Service interface {
	CloneVoice(ctx context.Context, userID, name string, samples []Sample) (*user.User, error)
	DeleteVoice(ctx context.Context, userID string) (*user.User, error)
	Synthesize(ctx context.Context, userID string, target content.Target, lang string) (*Recording, error)
	Get(ctx context.Context, userID, id string) (*Recording, error)
	Open(ctx context.Context, userID, id string) (io.ReadCloser, *Recording, error)
	Backfill(ctx context.Context, params BackfillParams) (*BackfillReport, error)
}

type service struct {
	cfg         *config.Config
	repo        Repository
	cloner      Cloner
	synthesizer Synthesizer
	storage     file.Storage
	users       Users
	translator  Translator
	resolver    content.Resolver
	notifier    *realtime.Notifier
	log         zerolog.Logger
}

// NewService wires the voice service. cloner and synthesizer may be nil when no provider is configured.
func NewService(
	cfg *config.Config,
	repo Repository,
	cloner Cloner,
	synthesizer Synthesizer,
	storage file.Storage,
	users Users,
	translator Translator,
	resolver content.Resolver,
	notifier *realtime.Notifier,
	log zerolog.Logger,
) Service {
	return &service{
		cfg:         cfg,
		repo:        repo,
		cloner:      cloner,
		synthesizer: synthesizer,
		storage:     storage,
		users:       users,
		translator:  translator,
		resolver:    resolver,
		notifier:    notifier,
		log:         log.With().Str("component", "voice-service").Logger(),
	}
}

func (s *service) CloneVoice(ctx context.Context, userID, name string, samples []Sample) (*user.User, error) {
	if s.cloner == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotImplemented, "voice cloning is not configured", nil, "0a5d8e2f-7c1b-4b46-9e3a-d6f0b9c4e871")
	}
	if len(samples) < MinSamples || len(samples) > MaxSamples {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("between %d and %d audio samples are required", MinSamples, MaxSamples), nil, "b7e2c9a4-1f6d-4e03-8a5b-3c9d7f1e0b62")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "voice-" + userID
	}
	if len(name) > maxVoiceName {
		name = name[:maxVoiceName]
	}

	clips := make([]Clip, 0, len(samples))
	for i, sample := range samples {
		clip, err := s.readSample(ctx, i, sample)
		if err != nil {
			return nil, err
		}
		clips = append(clips, *clip)
	}

	current, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load user")
	}
	if _, err := s.users.UpdateVoice(ctx, userID, user.VoiceUpdate{VoiceID: current.VoiceID, Status: user.VoiceStatusProcessing}); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "mark voice processing")
	}

	voiceID, err := s.cloner.Clone(ctx, name, clips)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("voice cloning failed")
		updated, updateErr := s.users.UpdateVoice(ctx, userID, user.VoiceUpdate{VoiceID: current.VoiceID, Status: user.VoiceStatusFailed, Error: err.Error()})
		if updateErr != nil {
			s.log.Error().Err(updateErr).Str("user_id", userID).Msg("record failed voice")
		} else {
			s.notifier.Emit(ctx, tableUsers, realtime.ChangeUpdate, updated, current, realtime.UserTopic(userID))
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "voice provider failed", err, "5f1c8b3e-9d2a-4f70-b6e4-a0d7c3f9e128")
	}

	updated, err := s.users.UpdateVoice(ctx, userID, user.VoiceUpdate{VoiceID: &voiceID, Status: user.VoiceStatusReady})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store voice")
	}
	if current.VoiceID != nil && *current.VoiceID != "" && *current.VoiceID != voiceID {
		if err := s.cloner.Delete(ctx, *current.VoiceID); err != nil {
			s.log.Warn().Err(err).Str("voice_id", *current.VoiceID).Msg("delete replaced voice")
		}
	}
	s.notifier.Emit(ctx, tableUsers, realtime.ChangeUpdate, updated, current, realtime.UserTopic(userID))
	return updated, nil
}

func (s *service) readSample(ctx context.Context, index int, sample Sample) (*Clip, error) {
	if sample.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("sample %d is empty", index+1), nil, "e4a9d0b7-3c6f-4a12-9b8e-7f2c5a1d6e03")
	}
	data, err := io.ReadAll(io.LimitReader(sample.Body, s.cfg.VoiceSampleMaxBytes+1))
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "failed to read sample", err, "93c6f2a0-8e5b-4d17-a4c9-1b0e7d3f8a52")
	}
	if len(data) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("sample %d is empty", index+1), nil, "2d8b5f1c-6a0e-4e94-8c37-f9a4d2b6c015")
	}
	if int64(len(data)) > s.cfg.VoiceSampleMaxBytes {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("sample %d exceeds max size of %d bytes", index+1, s.cfg.VoiceSampleMaxBytes), nil, "c1f7a3e9-0b4d-4c68-95e2-6d8a0f3b7c41")
	}
	mimeType := mimetype.Detect(data).String()
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !file.IsAudio(mimeType) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("sample %d is not a supported audio file (%s)", index+1, mimeType), nil, "7e0c4b8f-2a9d-4f53-b1e6-a5c8d0f2e974")
	}
	name := strings.TrimSpace(sample.Name)
	if name == "" {
		name = fmt.Sprintf("sample-%d", index+1)
	}
	return &Clip{Name: name, MimeType: mimeType, Data: data}, nil
}

func (s *service) DeleteVoice(ctx context.Context, userID string) (*user.User, error) {
	current, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load user")
	}
	if current.VoiceID == nil || *current.VoiceID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "no cloned voice", nil, "a8d3e6b1-5f0c-4b29-8e74-c2f9a1d5b630")
	}
	if s.cloner == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotImplemented, "voice cloning is not configured", nil, "4b9f0d2a-e7c3-4815-a6d9-0e3b8c5f7a24")
	}
	if err := s.cloner.Delete(ctx, *current.VoiceID); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "voice provider failed", err, "f6c2a8d5-1b7e-4d30-9f4a-8e5d0b3c6a17")
	}
	updated, err := s.users.UpdateVoice(ctx, userID, user.VoiceUpdate{Status: user.VoiceStatusNone})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "clear voice")
	}
	s.notifier.Emit(ctx, tableUsers, realtime.ChangeUpdate, updated, current, realtime.UserTopic(userID))
	return updated, nil
}

func (s *service) Synthesize(ctx context.Context, userID string, target content.Target, lang string) (*Recording, error) {
	if s.synthesizer == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotImplemented, "speech provider is not configured", nil, "1e8a5c2f-9d4b-4a07-b3e6-d7f0c9a2e851")
	}
	if strings.TrimSpace(lang) != "" {
		tag, err := language.Normalize(lang)
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, err.Error(), nil, "8c3f0a6d-4e2b-4b91-a5d8-1f7e9c0b3a46")
		}
		lang = tag
	} else {
		lang = ""
	}

	item, err := s.readable(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Text) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "content has no text to speak", nil, "d5b0e7a2-3f8c-4c64-9a1d-b6e2f4c8a093")
	}

	voiceID, err := s.voiceFor(ctx, item.AuthorID)
	if err != nil {
		return nil, err
	}
	rec, err := s.ensure(ctx, item, voiceID, lang, userID)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusReady {
		return rec, nil
	}
	return s.render(ctx, rec)
}

// voiceFor picks the author's cloned voice when cloning is available, otherwise the default voice.
func (s *service) voiceFor(ctx context.Context, authorID string) (string, error) {
	if s.cloner != nil {
		author, err := s.users.Get(ctx, authorID)
		if err != nil && !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return "", platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load author")
		}
		if author.HasReadyVoice() {
			return *author.VoiceID, nil
		}
	}
	return s.synthesizer.DefaultVoice(), nil
}

func (s *service) ensure(ctx context.Context, item *content.Item, voiceID, lang, requestedBy string) (*Recording, error) {
	now := time.Now().UTC()
	stored, err := s.repo.Ensure(ctx, &Recording{
		ID:          idgen.New(idgen.PrefixTTSRecording),
		TargetType:  item.Target.Type,
		TargetID:    item.Target.ID,
		VoiceID:     voiceID,
		Language:    lang,
		Status:      StatusPending,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store recording")
	}
	return stored, nil
}

// render synthesizes and uploads the audio of a recording. Failures are stored on the row.
func (s *service) render(ctx context.Context, rec *Recording) (*Recording, error) {
	item, err := s.resolver.Resolve(ctx, rec.Target())
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return s.fail(ctx, rec, nil, "content was deleted", err)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "resolve recording content")
	}

	text := item.Text
	if rec.Language != "" {
		if s.translator == nil {
			return s.fail(ctx, rec, item, "translation is not configured", nil)
		}
		translated, err := s.translator.ForItem(ctx, item, rec.Language)
		if err != nil {
			return s.fail(ctx, rec, item, "translation failed", err)
		}
		text = translated.Content
	}

	speech, err := s.synthesizer.Synthesize(ctx, rec.VoiceID, text, rec.Language)
	if err != nil {
		return s.fail(ctx, rec, item, "speech provider failed", err)
	}
	if len(speech.Audio) == 0 {
		return s.fail(ctx, rec, item, "speech provider returned no audio", nil)
	}

	key := SpeechKey(rec.TargetID, rec.ID)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(speech.Audio), int64(len(speech.Audio)), speech.MimeType); err != nil {
		return s.fail(ctx, rec, item, "failed to store audio", err)
	}
	ready, err := s.repo.MarkReady(ctx, rec.ID, key, speech.MimeType)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "mark recording ready")
	}
	s.notifier.Emit(ctx, tableRecordings, realtime.ChangeUpdate, ready, rec, item.Scope.Topic())
	return ready, nil
}

func (s *service) fail(ctx context.Context, rec *Recording, item *content.Item, message string, cause error) (*Recording, error) {
	detail := message
	if cause != nil {
		detail = message + ": " + cause.Error()
	}
	s.log.Warn().Err(cause).Str("recording_id", rec.ID).Str("target", rec.Target().String()).Msg(message)
	failed, err := s.repo.MarkFailed(ctx, rec.ID, detail)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "mark recording failed")
	}
	if item != nil {
		s.notifier.Emit(ctx, tableRecordings, realtime.ChangeUpdate, failed, rec, item.Scope.Topic())
	}
	return failed, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, message, cause, "6a2e9f4c-0d7b-4e58-b3a1-c8f5d2e7b960")
}

func (s *service) Get(ctx context.Context, userID, id string) (*Recording, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.readable(ctx, userID, rec.Target()); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "recording not found", nil, "b0f5c1e8-7a3d-4d26-9e4b-2c6a8f0d3e71")
	}
	return rec, nil
}

func (s *service) Open(ctx context.Context, userID, id string) (io.ReadCloser, *Recording, error) {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if rec.Status != StatusReady || rec.StorageKey == nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "recording is not ready", nil, "3d7a0e5b-c2f8-4a93-8b61-e4d9f0a7c258")
	}
	body, _, err := s.storage.Download(ctx, *rec.StorageKey)
	if err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "failed to read audio", err, "9f4b2d8e-6e1a-4c05-a7d3-0b8c5f2e9a14")
	}
	return body, rec, nil
}

// Backfill creates recordings for recent content by authors with a cloned voice and renders pending ones.
func (s *service) Backfill(ctx context.Context, params BackfillParams) (*BackfillReport, error) {
	report := &BackfillReport{}
	if s.synthesizer == nil {
		s.log.Debug().Msg("speech provider not configured, skipping backfill")
		return report, nil
	}

	if s.cloner != nil {
		candidates, err := s.repo.Candidates(ctx, time.Now().UTC().Add(-params.Lookback), params.BatchSize)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list speech candidates")
		}
		for i := range candidates {
			c := candidates[i]
			if _, err := s.ensure(ctx, &c.Item, c.VoiceID, "", c.Item.AuthorID); err != nil {
				return nil, err
			}
			report.Created++
		}
	}

	pending, err := s.repo.ListPending(ctx, params.MaxAttempts, params.BatchSize)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list pending recordings")
	}
	report.Processed = len(pending)
	if len(pending) == 0 {
		return report, nil
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if params.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(params.RatePerSecond), 1)
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, rec := range pending {
		rec := rec
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			result, err := s.render(gctx, rec)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Ready++
			case result != nil:
				report.Failed++
			default:
				// Storage or database trouble aborts the run.
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "speech backfill")
	}
	s.log.Info().Int("created", report.Created).Int("ready", report.Ready).Int("failed", report.Failed).Msg("speech backfill finished")
	return report, nil
}

func (s *service) readable(ctx context.Context, userID string, target content.Target) (*content.Item, error) {
	item, err := s.resolver.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	ok, err := s.resolver.CanRead(ctx, item.Scope, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check read access")
	}
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "content not found", nil, "e2c8f5a1-4b9d-4f36-8a0e-7d1b3c6f9e52")
	}
	return item, nil
}
