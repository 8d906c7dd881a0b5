package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dmizin/computer-inventory/internal/app"
	"github.com/dmizin/computer-inventory/internal/audit"
	"github.com/dmizin/computer-inventory/internal/model"
	"github.com/dmizin/computer-inventory/internal/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// CredentialSyncer is the secret sync surface the handlers depend on.
type CredentialSyncer interface {
	Enabled() bool
	Sync(ctx context.Context, asset *model.Asset, controller *model.ManagementController, mgmtOverride, osOverride *model.Credentials) (string, string, error)
	Credentials(ctx context.Context, asset *model.Asset) (map[string]string, error)
	DeleteSecret(ctx context.Context, vaultID, secretID string) error
	TestConnectivity(ctx context.Context) error
}

// Server is the inventory REST API server.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Server struct {
	cfg        *app.Configuration
	repository store.Repository
	reconciler AssetReconciler
	syncer     CredentialSyncer
	recorder   *audit.Recorder
	logger     *logrus.Logger
}

// AssetReconciler matches inbound asset records to stored rows.
type AssetReconciler interface {
	Upsert(ctx context.Context, inbound *model.AssetUpsert) (*model.Asset, bool, error)
}

func NewServer(cfg *app.Configuration, repository store.Repository, reconciler AssetReconciler, syncer CredentialSyncer, recorder *audit.Recorder, logger *logrus.Logger) *Server {
	return &Server{
		cfg:        cfg,
		repository: repository,
		reconciler: reconciler,
		syncer:     syncer,
		recorder:   recorder,
		logger:     logger,
	}
}

// Router assembles the gin engine with all inventory routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), s.requestMetrics())

	v1 := router.Group("/api/v1")

	v1.GET("/health", s.health)
	v1.GET("/health/vault", s.healthVault)

	v1.GET("/assets", s.listAssets)
	v1.GET("/assets/:id", s.getAsset)
	v1.GET("/assets/:id/audit", s.listAssetAudit)
	v1.GET("/assets/:id/controllers", s.listControllers)
	v1.GET("/controllers/:id", s.getController)
	v1.GET("/users", s.listUsers)
	v1.GET("/users/:id", s.getUser)
	v1.GET("/applications", s.listApplications)
	v1.GET("/applications/:id", s.getApplication)

	authorized := v1.Group("", s.apiKeyAuth())

	authorized.POST("/assets/upsert", s.upsertAsset)
	authorized.PATCH("/assets/:id", s.patchAsset)
	authorized.DELETE("/assets/:id", s.deleteAsset)

	authorized.POST("/assets/:id/credentials", s.pushCredentials)
	authorized.GET("/assets/:id/credentials", s.getCredentials)
	authorized.DELETE("/assets/:id/credentials", s.deleteCredentials)

	authorized.POST("/assets/:id/controllers", s.createController)
	authorized.PATCH("/controllers/:id", s.patchController)
	authorized.DELETE("/controllers/:id", s.deleteController)
	authorized.POST("/controllers/:id/test", s.testController)

	authorized.POST("/users", s.createUser)
	authorized.PATCH("/users/:id", s.patchUser)
	authorized.DELETE("/users/:id", s.deleteUser)

	authorized.POST("/applications", s.createApplication)
	authorized.PATCH("/applications/:id", s.patchApplication)
	authorized.DELETE("/applications/:id", s.deleteApplication)

	return router
}

// Run serves the API until the context is canceled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.WithField("address", s.cfg.ListenAddress).Info("API server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
