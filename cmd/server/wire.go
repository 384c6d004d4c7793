//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository"
	"github.com/huddlehq/huddle-server/internal/infrastructure/logger"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver"
)

var infrastructureSet = wire.NewSet(
	newTelemetry,
	newDatabaseConfig,
	newGormDB,
	newAuthValidator,
	newInfrastructure,
	newExternalProviders,
)

var repositorySet = wire.NewSet(
	repository.RepositoryProvider,
	wire.Struct(new(repositories), "*"),
)

// BuildApplication assembles the chat server with Wire. It mirrors buildApplication in server.go.
func BuildApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		infrastructureSet,
		repositorySet,
		newServices,
		newServerOptions,
		httpserver.New,
		newScheduler,
		NewApplication,
	)
	return nil, nil, nil
}
