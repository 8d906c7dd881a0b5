package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dmizin/computer-inventory/internal/model"
)

// MemStore is an in-memory Repository used in tests.
type MemStore struct {
	mu *sync.RWMutex

	assets       map[uuid.UUID]model.Asset
	controllers  map[uuid.UUID]model.ManagementController
	users        map[uuid.UUID]model.User
	applications map[uuid.UUID]model.Application
	assetApps    map[uuid.UUID][]uuid.UUID
	auditLogs    []model.AuditLog
	apiKeys      map[uuid.UUID]model.APIKey
}

func NewMemStore() *MemStore {
	return &MemStore{
		mu:           &sync.RWMutex{},
		assets:       map[uuid.UUID]model.Asset{},
		controllers:  map[uuid.UUID]model.ManagementController{},
		users:        map[uuid.UUID]model.User{},
		applications: map[uuid.UUID]model.Application{},
		assetApps:    map[uuid.UUID][]uuid.UUID{},
		apiKeys:      map[uuid.UUID]model.APIKey{},
	}
}

func (c *MemStore) AssetByID(_ context.Context, id uuid.UUID) (*model.Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	asset, ok := c.assets[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &asset, nil
}

func (c *MemStore) AssetByFQDN(_ context.Context, fqdn string) (*model.Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, asset := range c.assets {
		if asset.FQDN == fqdn {
			found := asset
			return &found, nil
		}
	}

	return nil, ErrNotFound
}

func (c *MemStore) AssetBySerialVendor(_ context.Context, serial, vendor string) (*model.Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, asset := range c.assets {
		if asset.SerialNumber == serial && asset.Vendor == vendor {
			found := asset
			return &found, nil
		}
	}

	return nil, ErrNotFound
}

func (c *MemStore) AssetByHostname(_ context.Context, hostname string) (*model.Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, asset := range c.assets {
		if asset.Hostname == hostname {
			found := asset
			return &found, nil
		}
	}

	return nil, ErrNotFound
}

func (c *MemStore) ListAssets(_ context.Context, filter *AssetFilter) ([]model.Asset, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	assets := []model.Asset{}

	for _, asset := range c.assets {
		if filter.Status != "" && asset.Status != filter.Status {
			continue
		}

		if filter.Type != "" && asset.Type != filter.Type {
			continue
		}

		if filter.Vendor != "" && !strings.Contains(strings.ToLower(asset.Vendor), strings.ToLower(filter.Vendor)) {
			continue
		}

		if filter.Search != "" && !assetMatches(&asset, filter.Search) {
			continue
		}

		assets = append(assets, asset)
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].CreatedAt.After(assets[j].CreatedAt) })

	return assets, len(assets), nil
}

func assetMatches(asset *model.Asset, search string) bool {
	search = strings.ToLower(search)

	for _, v := range []string{asset.Hostname, asset.FQDN, asset.SerialNumber, asset.Vendor, asset.Model} {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}

	return false
}

func (c *MemStore) CreateAsset(_ context.Context, asset *model.Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if asset.FQDN != "" {
		for _, existing := range c.assets {
			if existing.FQDN == asset.FQDN {
				return errors.Wrap(ErrConflict, "fqdn "+asset.FQDN)
			}
		}
	}

	asset.CreatedAt = time.Now()
	asset.UpdatedAt = asset.CreatedAt
	c.assets[asset.ID] = *asset

	return nil
}

func (c *MemStore) UpdateAsset(_ context.Context, asset *model.Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.assets[asset.ID]
	if !ok {
		return ErrNotFound
	}

	asset.CreatedAt = stored.CreatedAt
	asset.UpdatedAt = time.Now()
	c.assets[asset.ID] = *asset

	return nil
}

func (c *MemStore) SetAssetSecretRef(_ context.Context, id uuid.UUID, secretID, vaultID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	asset, ok := c.assets[id]
	if !ok {
		return ErrNotFound
	}

	asset.SecretID = secretID
	asset.VaultID = vaultID
	asset.UpdatedAt = time.Now()
	c.assets[id] = asset

	return nil
}

func (c *MemStore) DeleteAsset(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.assets[id]; !ok {
		return ErrNotFound
	}

	delete(c.assets, id)
	delete(c.assetApps, id)

	// controllers cascade with their asset
	for cid, controller := range c.controllers {
		if controller.AssetID == id {
			delete(c.controllers, cid)
		}
	}

	return nil
}

func (c *MemStore) AssetApplicationIDs(_ context.Context, assetID uuid.UUID) ([]uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]uuid.UUID{}, c.assetApps[assetID]...), nil
}

func (c *MemStore) ReplaceAssetApplications(_ context.Context, assetID uuid.UUID, applicationIDs []uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.assetApps[assetID] = append([]uuid.UUID{}, applicationIDs...)

	return nil
}

func (c *MemStore) ControllerByID(_ context.Context, id uuid.UUID) (*model.ManagementController, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	controller, ok := c.controllers[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &controller, nil
}

func (c *MemStore) ControllersByAsset(_ context.Context, assetID uuid.UUID) ([]model.ManagementController, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	controllers := []model.ManagementController{}

	for _, controller := range c.controllers {
		if controller.AssetID == assetID {
			controllers = append(controllers, controller)
		}
	}

	sort.Slice(controllers, func(i, j int) bool { return controllers[i].CreatedAt.Before(controllers[j].CreatedAt) })

	return controllers, nil
}

func (c *MemStore) CreateController(_ context.Context, controller *model.ManagementController) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	controller.CreatedAt = time.Now()
	c.controllers[controller.ID] = *controller

	return nil
}

func (c *MemStore) UpdateController(_ context.Context, controller *model.ManagementController) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.controllers[controller.ID]; !ok {
		return ErrNotFound
	}

	c.controllers[controller.ID] = *controller

	return nil
}

func (c *MemStore) DeleteController(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.controllers[id]; !ok {
		return ErrNotFound
	}

	delete(c.controllers, id)

	return nil
}

func (c *MemStore) UserByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	user, ok := c.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &user, nil
}

func (c *MemStore) ListUsers(_ context.Context, _, _ int) ([]model.User, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	users := []model.User{}
	for _, user := range c.users {
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	return users, len(users), nil
}

func (c *MemStore) CreateUser(_ context.Context, user *model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	c.users[user.ID] = *user

	return nil
}

func (c *MemStore) UpdateUser(_ context.Context, user *model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.users[user.ID]; !ok {
		return ErrNotFound
	}

	user.UpdatedAt = time.Now()
	c.users[user.ID] = *user

	return nil
}

func (c *MemStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.users[id]; !ok {
		return ErrNotFound
	}

	delete(c.users, id)

	return nil
}

func (c *MemStore) ApplicationByID(_ context.Context, id uuid.UUID) (*model.Application, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	application, ok := c.applications[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &application, nil
}

func (c *MemStore) ListApplications(_ context.Context, _, _ int) ([]model.Application, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	applications := []model.Application{}
	for _, application := range c.applications {
		applications = append(applications, application)
	}

	sort.Slice(applications, func(i, j int) bool { return applications[i].Name < applications[j].Name })

	return applications, len(applications), nil
}

func (c *MemStore) CreateApplication(_ context.Context, application *model.Application) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	application.CreatedAt = time.Now()
	application.UpdatedAt = application.CreatedAt
	c.applications[application.ID] = *application

	return nil
}

func (c *MemStore) UpdateApplication(_ context.Context, application *model.Application) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.applications[application.ID]; !ok {
		return ErrNotFound
	}

	application.UpdatedAt = time.Now()
	c.applications[application.ID] = *application

	return nil
}

func (c *MemStore) DeleteApplication(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.applications[id]; !ok {
		return ErrNotFound
	}

	delete(c.applications, id)

	return nil
}

func (c *MemStore) CreateAuditLog(_ context.Context, entry *model.AuditLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.Timestamp = time.Now()
	c.auditLogs = append(c.auditLogs, *entry)

	return nil
}

func (c *MemStore) ListAuditLogs(_ context.Context, filter *AuditLogFilter) ([]model.AuditLog, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := []model.AuditLog{}

	for _, entry := range c.auditLogs {
		if filter.ResourceType != "" && entry.ResourceType != filter.ResourceType {
			continue
		}

		if filter.ResourceID != nil && entry.ResourceID != *filter.ResourceID {
			continue
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })

	return entries, len(entries), nil
}

func (c *MemStore) ActiveAPIKeys(_ context.Context) ([]model.APIKey, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := []model.APIKey{}

	for _, key := range c.apiKeys {
		if key.Active {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (c *MemStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key.CreatedAt = time.Now()
	c.apiKeys[key.ID] = *key

	return nil
}
