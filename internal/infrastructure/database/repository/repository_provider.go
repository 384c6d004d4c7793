package repository

import (
	"github.com/google/wire"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/channelrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/contentrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/conversationrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/embeddingrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/filerepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/postrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/presencerepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/reactionrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/translationrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/userrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/voicerepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

var RepositoryProvider = wire.NewSet(
	transaction.NewDatabase,
	userrepo.NewUserGormRepository,
	channelrepo.NewChannelGormRepository,
	postrepo.NewPostGormRepository,
	conversationrepo.NewConversationGormRepository,
	filerepo.NewFileGormRepository,
	reactionrepo.NewReactionGormRepository,
	translationrepo.NewTranslationGormRepository,
	embeddingrepo.NewEmbeddingGormRepository,
	voicerepo.NewRecordingGormRepository,
	presencerepo.NewPresenceGormRepository,
	contentrepo.NewContentGormRepository,
	wire.Bind(new(content.Resolver), new(*contentrepo.ContentGormRepository)),
	wire.Bind(new(content.Cleaner), new(*contentrepo.ContentGormRepository)),
)
