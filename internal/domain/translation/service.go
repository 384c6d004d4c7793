package translation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/language"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const tableTranslations = "translations"

// Service translates content on demand and remembers the result per language.
type Service interface {
	Translate(ctx context.Context, userID string, target content.Target, lang string) (*Translation, error)
	// ForItem translates an already resolved and authorized item.
	ForItem(ctx context.Context, item *content.Item, lang string) (*Translation, error)
	ListForTarget(ctx context.Context, userID string, target content.Target) ([]*Translation, error)
}

type service struct {
	cfg        *config.Config
	repo       Repository
	translator Translator
	cache      Cache
	resolver   content.Resolver
	notifier   *realtime.Notifier
	log        zerolog.Logger
}

// NewService wires the translation service. translator and cache may be nil: without a translator every
// request fails with NOT_IMPLEMENTED, without a cache every new text reaches the provider.
func NewService(cfg *config.Config, repo Repository, translator Translator, cache Cache, resolver content.Resolver, notifier *realtime.Notifier, log zerolog.Logger) Service {
	return &service{
		cfg:        cfg,
		repo:       repo,
		translator: translator,
		cache:      cache,
		resolver:   resolver,
		notifier:   notifier,
		log:        log.With().Str("component", "translation-service").Logger(),
	}
}

// SourceHash fingerprints the text a translation was produced from.
func SourceHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cacheKey(hash, lang string) string {
	return "translation:" + lang + ":" + hash
}

func (s *service) Translate(ctx context.Context, userID string, target content.Target, lang string) (*Translation, error) {
	item, err := s.readable(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	return s.ForItem(ctx, item, lang)
}

func (s *service) ForItem(ctx context.Context, item *content.Item, lang string) (*Translation, error) {
	tag, err := language.Normalize(lang)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, err.Error(), nil, "3e7a0c4f-9b2d-4e61-a8f5-d1c6b9e2a047")
	}
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "content has no text to translate", nil, "c8b5e2a9-1f6d-4c34-9e0a-7d3f8b1c5e62")
	}
	hash := SourceHash(text)

	existing, err := s.repo.Find(ctx, item.Target, tag)
	if err != nil && !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find translation")
	}
	if existing != nil && existing.Status == StatusReady && existing.SourceHash == hash {
		return existing, nil
	}

	result, cached := s.fromCache(ctx, hash, tag)
	if !cached {
		if s.translator == nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotImplemented, "translation provider is not configured", nil, "5a2f9d6c-0e3b-4b78-a1c4-e9d7f3a0b816")
		}
		result, err = s.translator.Translate(ctx, text, tag)
		if err != nil {
			s.log.Warn().Err(err).Str("target", item.Target.String()).Str("language", tag).Msg("translation provider failed")
			if _, storeErr := s.store(ctx, item, existing, &Translation{Language: tag, SourceHash: hash, Status: StatusFailed, Error: err.Error()}); storeErr != nil {
				s.log.Error().Err(storeErr).Str("target", item.Target.String()).Msg("record failed translation")
			}
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "translation provider failed", err, "b1d6a3e8-4c9f-4e25-8b7a-0f2c5d9e6a13")
		}
		s.toCache(ctx, hash, tag, result)
	}

	return s.store(ctx, item, existing, &Translation{
		Language:       tag,
		SourceLanguage: strings.ToLower(result.SourceLanguage),
		SourceHash:     hash,
		Content:        result.Text,
		Status:         StatusReady,
	})
}

func (s *service) store(ctx context.Context, item *content.Item, existing, t *Translation) (*Translation, error) {
	now := time.Now().UTC()
	t.ID = idgen.New(idgen.PrefixTranslation)
	t.TargetType = item.Target.Type
	t.TargetID = item.Target.ID
	t.CreatedAt = now
	t.UpdatedAt = now

	stored, err := s.repo.Upsert(ctx, t)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store translation")
	}
	change, old := realtime.ChangeInsert, any(nil)
	if existing != nil {
		change, old = realtime.ChangeUpdate, existing
	}
	s.notifier.Emit(ctx, tableTranslations, change, stored, old, item.Scope.Topic())
	return stored, nil
}

func (s *service) fromCache(ctx context.Context, hash, lang string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, cacheKey(hash, lang))
	if err != nil {
		s.log.Debug().Err(err).Msg("translation cache get")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (s *service) toCache(ctx context.Context, hash, lang string, result *Result) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(hash, lang), string(raw), s.cfg.TranslationCacheTTL); err != nil {
		s.log.Debug().Err(err).Msg("translation cache set")
	}
}

func (s *service) ListForTarget(ctx context.Context, userID string, target content.Target) ([]*Translation, error) {
	if _, err := s.readable(ctx, userID, target); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForTarget(ctx, target)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list translations")
	}
	if rows == nil {
		rows = []*Translation{}
	}
	return rows, nil
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
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "content not found", nil, "6f0c3a8d-2e5b-4d91-b7f4-a9e1c6d3b058")
	}
	return item, nil
}
