package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dmizin/computer-inventory/internal/model"
	"github.com/dmizin/computer-inventory/internal/reconcile"
	"github.com/dmizin/computer-inventory/internal/store"
	"github.com/dmizin/computer-inventory/internal/vault"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// assetResponse augments the stored asset with its relations and the
// derived has_secret flag.
type assetResponse struct {
	*model.Asset

	HasSecret      bool                         `json:"has_secret"`
	ApplicationIDs []uuid.UUID                  `json:"application_ids,omitempty"`
	Controllers    []model.ManagementController `json:"controllers,omitempty"`
}

func (s *Server) assetResponse(c *gin.Context, asset *model.Asset, withRelations bool) *assetResponse {
	response := &assetResponse{Asset: asset, HasSecret: asset.HasSecret()}

	if !withRelations {
		return response
	}

	controllers, err := s.repository.ControllersByAsset(c.Request.Context(), asset.ID)
	if err != nil {
		s.logger.WithError(err).Warn("listing asset controllers")
	} else {
		response.Controllers = controllers
	}

	ids, err := s.repository.AssetApplicationIDs(c.Request.Context(), asset.ID)
	if err != nil {
		s.logger.WithError(err).Warn("listing asset applications")
	} else {
		response.ApplicationIDs = ids
	}

	return response
}

func (s *Server) listAssets(c *gin.Context) {
	filter := &store.AssetFilter{
		Search:    c.Query("search"),
		Status:    model.AssetStatus(c.Query("status")),
		Type:      model.AssetType(c.Query("type")),
		Vendor:    c.Query("vendor"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	filter.Offset, filter.Limit = pagination(c)

	if filter.Status != "" && !filter.Status.Valid() {
		badRequest(c, "unsupported asset status: "+string(filter.Status))
		return
	}

	if filter.Type != "" && !filter.Type.Valid() {
		badRequest(c, "unsupported asset type: "+string(filter.Type))
		return
	}

	assets, total, err := s.repository.ListAssets(c.Request.Context(), filter)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assets": assets, "total": total})
}

func (s *Server) getAsset(c *gin.Context) {
	asset, ok := s.assetFromPath(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, s.assetResponse(c, asset, true))
}

func (s *Server) upsertAsset(c *gin.Context) {
	var inbound model.AssetUpsert

	if err := c.ShouldBindJSON(&inbound); err != nil {
		badRequest(c, err.Error())
		return
	}

	if inbound.Type != nil && !inbound.Type.Valid() {
		badRequest(c, "unsupported asset type: "+string(*inbound.Type))
		return
	}

	if inbound.Status != nil && !inbound.Status.Valid() {
		badRequest(c, "unsupported asset status: "+string(*inbound.Status))
		return
	}

	asset, created, err := s.reconciler.Upsert(c.Request.Context(), &inbound)
	if err != nil {
		if errors.Is(err, reconcile.ErrInvalidUpsert) {
			badRequest(c, err.Error())
			return
		}

		s.storeError(c, err)

		return
	}

	action := model.AuditActionUpdate
	status := http.StatusOK

	if created {
		action = model.AuditActionCreate
		status = http.StatusCreated
	}

	s.recordAudit(c, action, model.ResourceTypeAsset, asset.ID, upsertChanges(&inbound))

	// the asset row is committed, the vault mirror is best effort from here
	s.resyncAsset(c, asset, inbound.MgmtCredentials, inbound.OSCredentials)

	c.JSON(status, gin.H{"asset": s.assetResponse(c, asset, false), "created": created})
}

// assetPatch is a partial asset update, every field optional.
type assetPatch struct {
	Hostname     *string `json:"hostname,omitempty"`
	FQDN         *string `json:"fqdn,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Vendor       *string `json:"vendor,omitempty"`
	Model        *string `json:"model,omitempty"`

	Type   *model.AssetType   `json:"type,omitempty"`
	Status *model.AssetStatus `json:"status,omitempty"`

	Location *string     `json:"location,omitempty"`
	Specs    model.Specs `json:"specs,omitempty"`

	PrimaryOwnerID *uuid.UUID `json:"primary_owner_id,omitempty"`
	Notes          *string    `json:"notes,omitempty"`

	ApplicationIDs *[]uuid.UUID `json:"application_ids,omitempty"`

	MgmtCredentials *model.Credentials `json:"mgmt_credentials,omitempty"`
	OSCredentials   *model.Credentials `json:"os_credentials,omitempty"`
}

func (s *Server) patchAsset(c *gin.Context) {
	asset, ok := s.assetFromPath(c)
	if !ok {
		return
	}

	var patch assetPatch

	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}

	if patch.Type != nil && !patch.Type.Valid() {
		badRequest(c, "unsupported asset type: "+string(*patch.Type))
		return
	}

	if patch.Status != nil && !patch.Status.Valid() {
		badRequest(c, "unsupported asset status: "+string(*patch.Status))
		return
	}

	applyAssetPatch(asset, &patch)

	if err := s.repository.UpdateAsset(c.Request.Context(), asset); err != nil {
		s.storeError(c, err)
		return
	}

	if patch.ApplicationIDs != nil {
		if err := s.repository.ReplaceAssetApplications(c.Request.Context(), asset.ID, *patch.ApplicationIDs); err != nil {
			s.storeError(c, err)
			return
		}
	}

	s.recordAudit(c, model.AuditActionUpdate, model.ResourceTypeAsset, asset.ID, patchChanges(&patch))

	s.resyncAsset(c, asset, patch.MgmtCredentials, patch.OSCredentials)

	c.JSON(http.StatusOK, s.assetResponse(c, asset, false))
}

func applyAssetPatch(asset *model.Asset, patch *assetPatch) {
	if patch.Hostname != nil {
		asset.Hostname = *patch.Hostname
	}

	if patch.FQDN != nil {
		asset.FQDN = *patch.FQDN
	}

	if patch.SerialNumber != nil {
		asset.SerialNumber = *patch.SerialNumber
	}

	if patch.Vendor != nil {
		asset.Vendor = *patch.Vendor
	}

	if patch.Model != nil {
		asset.Model = *patch.Model
	}

	if patch.Type != nil {
		asset.Type = *patch.Type
	}

	if patch.Status != nil {
		asset.Status = *patch.Status
	}

	if patch.Location != nil {
		asset.Location = *patch.Location
	}

	if patch.Specs != nil {
		asset.Specs = patch.Specs
	}

	if patch.PrimaryOwnerID != nil {
		asset.PrimaryOwnerID = patch.PrimaryOwnerID
	}

	if patch.Notes != nil {
		asset.Notes = *patch.Notes
	}
}

func (s *Server) deleteAsset(c *gin.Context) {
	asset, ok := s.assetFromPath(c)
	if !ok {
		return
	}

	hard, _ := strconv.ParseBool(c.Query("hard"))

	if !hard {
		asset.Status = model.AssetStatusRetired

		if err := s.repository.UpdateAsset(c.Request.Context(), asset); err != nil {
			s.storeError(c, err)
			return
		}

		s.recordAudit(c, model.AuditActionSoftDelete, model.ResourceTypeAsset, asset.ID, map[string]interface{}{
			"status": string(model.AssetStatusRetired),
		})

		c.JSON(http.StatusOK, s.assetResponse(c, asset, false))

		return
	}

	if asset.HasSecret() {
		if err := s.syncer.DeleteSecret(c.Request.Context(), asset.VaultID, asset.SecretID); err != nil {
			s.logger.WithError(err).WithField("assetID", asset.ID).Warn("deleting vault secret for asset")
		}
	}

	if err := s.repository.DeleteAsset(c.Request.Context(), asset.ID); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionDelete, model.ResourceTypeAsset, asset.ID, map[string]interface{}{
		"hostname": asset.Hostname,
	})

	c.Status(http.StatusNoContent)
}

func (s *Server) listAssetAudit(c *gin.Context) {
	asset, ok := s.assetFromPath(c)
	if !ok {
		return
	}

	filter := &store.AuditLogFilter{
		ResourceType: model.ResourceTypeAsset,
		ResourceID:   &asset.ID,
	}

	filter.Offset, filter.Limit = pagination(c)

	entries, total, err := s.repository.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total})
}

// credentialsRequest carries the optional overrides for a vault secret push.
type credentialsRequest struct {
	MgmtCredentials *model.Credentials `json:"mgmt_credentials,omitempty"`
	OSCredentials   *model.Credentials `json:"os_credentials,omitempty"`
}

func (s *Server) pushCredentials(c *gin.Context) {
	asset, ok := s.assetFromPath(c)
	if !ok {
		return
	}

	if !s.syncer.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vault integration disabled"})
		return
	}

	var request credentialsRequest

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	controller, err := s.primaryController(c, asset.ID)
	if err != nil {
		s.storeError(c, err)
		return
	}

	secretID, vaultID, err := s.syncer.Sync(c.Request.Context(), asset, controller, request.MgmtCredentials, request.OSCredentials)
	if err != nil {
		s.vaultError(c, err)
		return
	}

	if err := s.repository.SetAssetSecretRef(c.Request.Context(), asset.ID, secretID, vaultID); err != nil {
		s.storeError(c, err)
		return
	}

	asset.SecretID, asset.VaultID = secretID, vaultID

	c.JSON(http.StatusOK, gin.H{"secret_id": secretID, "vault_id": vaultID})
}

func (s *Server) getCredentials(c *gin.Context) {
	asset, ok := s.assetFromPath(c)
	if !ok {
		return
	}

	if !s.syncer.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vault integration disabled"})
		return
	}

	values, err := s.syncer.Credentials(c.Request.Context(), asset)
	if err != nil {
		s.vaultError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fields": values})
}

func (s *Server) deleteCredentials(c *gin.Context) {
	asset, ok := s.assetFromPath(c)
	if !ok {
		return
	}

	if !s.syncer.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vault integration disabled"})
		return
	}

	if !asset.HasSecret() {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset has no vault secret"})
		return
	}

	if err := s.syncer.DeleteSecret(c.Request.Context(), asset.VaultID, asset.SecretID); err != nil {
		s.vaultError(c, err)
		return
	}

	if err := s.repository.SetAssetSecretRef(c.Request.Context(), asset.ID, "", ""); err != nil {
		s.storeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// resyncAsset mirrors the asset's credentials into the vault after a
// relational write. Failures are logged and swallowed, a vault outage must
// never fail the caller's mutation.
func (s *Server) resyncAsset(c *gin.Context, asset *model.Asset, mgmtOverride, osOverride *model.Credentials) {
	if !s.syncer.Enabled() {
		return
	}

	controller, err := s.primaryController(c, asset.ID)
	if err != nil {
		s.logger.WithError(err).WithField("assetID", asset.ID).Warn("resolving controller for vault sync")
		return
	}

	secretID, vaultID, err := s.syncer.Sync(c.Request.Context(), asset, controller, mgmtOverride, osOverride)
	if err != nil {
		s.logger.WithError(err).WithField("assetID", asset.ID).Warn("vault credential sync failed")
		return
	}

	if secretID == "" {
		return
	}

	if err := s.repository.SetAssetSecretRef(c.Request.Context(), asset.ID, secretID, vaultID); err != nil {
		s.logger.WithError(err).WithField("assetID", asset.ID).Warn("recording vault secret reference")
		return
	}

	asset.SecretID, asset.VaultID = secretID, vaultID
}

// primaryController returns the asset's first controller, nil when it has none.
func (s *Server) primaryController(c *gin.Context, assetID uuid.UUID) (*model.ManagementController, error) {
	controllers, err := s.repository.ControllersByAsset(c.Request.Context(), assetID)
	if err != nil {
		return nil, err
	}

	if len(controllers) == 0 {
		return nil, nil
	}

	return &controllers[0], nil
}

func (s *Server) assetFromPath(c *gin.Context) (*model.Asset, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}

	asset, err := s.repository.AssetByID(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return nil, false
	}

	return asset, true
}

func (s *Server) recordAudit(c *gin.Context, action, resourceType string, resourceID uuid.UUID, changes map[string]interface{}) {
	if err := s.recorder.Record(c.Request.Context(), action, resourceType, resourceID, changes, actorKeyID(c)); err != nil {
		s.logger.WithError(err).Warn("recording audit entry")
	}
}

func upsertChanges(inbound *model.AssetUpsert) map[string]interface{} {
	changes := map[string]interface{}{"hostname": inbound.Hostname}

	addChange(changes, "fqdn", inbound.FQDN)
	addChange(changes, "serial_number", inbound.SerialNumber)
	addChange(changes, "vendor", inbound.Vendor)
	addChange(changes, "model", inbound.Model)
	addChange(changes, "location", inbound.Location)
	addChange(changes, "notes", inbound.Notes)

	if inbound.Type != nil {
		changes["type"] = string(*inbound.Type)
	}

	if inbound.Status != nil {
		changes["status"] = string(*inbound.Status)
	}

	if inbound.Specs != nil {
		changes["specs"] = inbound.Specs
	}

	if inbound.PrimaryOwnerID != nil {
		changes["primary_owner_id"] = *inbound.PrimaryOwnerID
	}

	if inbound.ApplicationIDs != nil {
		changes["application_ids"] = *inbound.ApplicationIDs
	}

	return changes
}

func patchChanges(patch *assetPatch) map[string]interface{} {
	changes := map[string]interface{}{}

	addChange(changes, "hostname", patch.Hostname)
	addChange(changes, "fqdn", patch.FQDN)
	addChange(changes, "serial_number", patch.SerialNumber)
	addChange(changes, "vendor", patch.Vendor)
	addChange(changes, "model", patch.Model)
	addChange(changes, "location", patch.Location)
	addChange(changes, "notes", patch.Notes)

	if patch.Type != nil {
		changes["type"] = string(*patch.Type)
	}

	if patch.Status != nil {
		changes["status"] = string(*patch.Status)
	}

	if patch.Specs != nil {
		changes["specs"] = patch.Specs
	}

	if patch.PrimaryOwnerID != nil {
		changes["primary_owner_id"] = *patch.PrimaryOwnerID
	}

	if patch.ApplicationIDs != nil {
		changes["application_ids"] = *patch.ApplicationIDs
	}

	return changes
}

func addChange(changes map[string]interface{}, key string, value *string) {
	if value != nil {
		changes[key] = *value
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid identifier: "+c.Param("id"))
		return uuid.Nil, false
	}

	return id, true
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}

	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	return offset, limit
}

func badRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": detail})
}

func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.WithError(err).Error("store query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) vaultError(c *gin.Context, err error) {
	var vaultErr *vault.Error

	if errors.As(err, &vaultErr) && vaultErr.IsNotFound() {
		c.JSON(http.StatusNotFound, gin.H{"error": vaultErr.Error()})
		return
	}

	s.logger.WithError(err).Error("vault request failed")
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
