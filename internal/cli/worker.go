package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Mansoor88-6/process-tracker/internal/client"
	"Mansoor88-6/process-tracker/internal/config"
	"Mansoor88-6/process-tracker/internal/controller"
	"Mansoor88-6/process-tracker/internal/credential"
	"Mansoor88-6/process-tracker/internal/database"
	"Mansoor88-6/process-tracker/internal/device"
	"Mansoor88-6/process-tracker/internal/localstore"
	"Mansoor88-6/process-tracker/internal/logger"
	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/syncer"

	"go.uber.org/zap"
)

// worker bundles the client-side components one command needs.
type worker struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	store    *localstore.Store
	creds    *credential.Store
	api      *client.APIClient
	sync     *syncer.Reconciler
	deviceID string
}

func loadConfig(opts *RootOptions) (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openWorker(opts *RootOptions) (*worker, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg.StoragePath, database.ClientSchema, log.Logger)
	if err != nil {
		return nil, err
	}

	identity := device.NewIdentity()
	deviceID := identity.Resolve(cfg.Device.ID)
	log.Debug("Device resolved",
		zap.String("device_id", deviceID),
		zap.String("device_name", identity.Name(cfg.Device.Name)),
	)

	w := &worker{
		cfg:      cfg,
		log:      log,
		db:       db,
		store:    localstore.New(db.DB, log.Logger),
		creds:    credential.NewStore(cfg.CredentialsPath),
		api:      client.NewAPIClient(cfg.Backend.BaseURL, deviceID, time.Duration(cfg.Backend.Timeout)*time.Second, log.Logger),
		deviceID: deviceID,
	}

	if sess, err := w.creds.Load(); err == nil {
		w.api.SetToken(sess.Token)
	} else if !errors.Is(err, credential.ErrNoSession) {
		log.Warn("Failed to load session", zap.Error(err))
	}

	// A rejected token means the account was revoked or the session expired.
	w.api.OnAuthFailure(func(err error) {
		log.Warn("Session rejected, logging out", zap.Error(err))
		w.api.SetToken("")
		if err := w.creds.Clear(); err != nil {
			log.Error("Failed to clear session", zap.Error(err))
		}
	})

	w.sync = syncer.NewReconciler(w.store, w.api, w.sessionUser,
		time.Duration(cfg.Sync.ProbeInterval)*time.Second, log.Logger)
	return w, nil
}

func (w *worker) close() {
	if err := w.db.Close(); err != nil {
		w.log.Error("Failed to close database", zap.Error(err))
	}
	w.log.Sync()
}

// sessionUser reports the logged-in user. Sync only ever pushes that user's records.
func (w *worker) sessionUser() (int64, bool) {
	sess, err := w.creds.Load()
	if err != nil {
		return 0, false
	}
	return sess.User.ID, true
}

// pendingCount returns how many of the logged-in user's records wait for sync.
func (w *worker) pendingCount(ctx context.Context) (int, error) {
	userID, ok := w.sessionUser()
	if !ok {
		return 0, nil
	}
	return w.store.PendingCount(ctx, userID)
}

// controller returns a timer controller for the logged-in user, resumed from the local store.
func (w *worker) controller(ctx context.Context) (*controller.Controller, error) {
	sess, err := requireSession(w)
	if err != nil {
		return nil, err
	}
	ctrl := controller.New(w.store, sess.User.ID, w.log.Logger, controller.WithSync(w.sync))
	if _, err := ctrl.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore timer: %w", err)
	}
	return ctrl, nil
}

// refreshProcesses fetches definitions from the server and caches them. When the server
// cannot be reached the cached copy is returned together with its cache time.
func (w *worker) refreshProcesses(ctx context.Context) ([]models.ProcessDefinition, time.Time, error) {
	defs, err := w.api.FetchProcesses(ctx)
	if err == nil {
		if err := w.store.CacheProcesses(ctx, defs, time.Now()); err != nil {
			return nil, time.Time{}, err
		}
		return defs, time.Time{}, nil
	}

	var netErr *client.NetworkError
	var srvErr *client.ServerError
	if !errors.As(err, &netErr) && !errors.As(err, &srvErr) {
		return nil, time.Time{}, err
	}
	w.log.Info("Server unreachable, using cached processes", zap.Error(err))

	cached, cerr := w.store.CachedProcesses(ctx)
	if cerr != nil {
		return nil, time.Time{}, cerr
	}
	at, cerr := w.store.ProcessesCachedAt(ctx)
	if cerr != nil {
		return nil, time.Time{}, cerr
	}
	return cached, at, nil
}

func (w *worker) processNames(ctx context.Context) map[int64]string {
	names := make(map[int64]string)
	defs, err := w.store.CachedProcesses(ctx)
	if err != nil {
		w.log.Warn("Failed to read cached processes", zap.Error(err))
		return names
	}
	for _, def := range defs {
		names[def.ID] = def.Name
	}
	return names
}
