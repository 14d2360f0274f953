package main

import (
	"context"

	"github.com/amankumarsingh77/pixiescale/internal/server"
	storageEvents "github.com/amankumarsingh77/pixiescale/internal/storage/delivery/events"
	storageHttp "github.com/amankumarsingh77/pixiescale/internal/storage/delivery/http"
	storageRepository "github.com/amankumarsingh77/pixiescale/internal/storage/repository"
	storageUseCase "github.com/amankumarsingh77/pixiescale/internal/storage/usecase"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Run the storage finalizer",
	Long:  `storage moves finished encodes into the blob store. It reads encoder output from the local disk, so it must share the worker's temp directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServices(cmd, storageService)
	},
}

func storageService(ctx context.Context, rt *deps) (*service, error) {
	log := rt.log.Named("storage")
	store, err := storageRepository.NewBlobStore(ctx, rt.cfg, log)
	if err != nil {
		return nil, err
	}
	storageUC := storageUseCase.NewStorageUseCase(store, rt.metrics, log)
	listener := storageEvents.NewListener(rt.cfg, rt.bus, rt.emitter, storageUC, log)
	handlers := storageHttp.NewStorageHandler(storageUC, log)

	return &service{
		name: "storage",
		runs: []func(context.Context) error{listener.Run},
		routes: []server.RouteMapper{func(v1 *echo.Group) {
			storageHttp.MapStorageRoutes(v1.Group("/storage"), handlers)
		}},
	}, nil
}
