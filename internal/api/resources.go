package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmizin/computer-inventory/internal/model"
)

const controllerProbeTimeout = 5 * time.Second

// controllerRequest creates or patches a management controller.
type controllerRequest struct {
	Type    *model.ControllerType `json:"type,omitempty"`
	Address *string               `json:"address,omitempty"`
	Port    *int                  `json:"port,omitempty"`
	UIURL   *string               `json:"ui_url,omitempty"`

	CredentialRef       *string `json:"credential_ref,omitempty"`
	UseAssetCredentials *bool   `json:"use_asset_credentials,omitempty"`
}

func (s *Server) listControllers(c *gin.Context) {
	asset, ok := s.assetFromPath(c)
	if !ok {
		return
	}

	controllers, err := s.repository.ControllersByAsset(c.Request.Context(), asset.ID)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"controllers": controllers})
}

func (s *Server) getController(c *gin.Context) {
	controller, ok := s.controllerFromPath(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, controller)
}

func (s *Server) createController(c *gin.Context) {
	asset, ok := s.assetFromPath(c)
	if !ok {
		return
	}

	var request controllerRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err.Error())
		return
	}

	if request.Type == nil || request.Address == nil || request.Port == nil {
		badRequest(c, "type, address and port are required")
		return
	}

	if !request.Type.Valid() {
		badRequest(c, "unsupported controller type: "+string(*request.Type))
		return
	}

	controller := &model.ManagementController{
		ID:      uuid.New(),
		AssetID: asset.ID,
		Type:    *request.Type,
		Address: *request.Address,
		Port:    *request.Port,
	}

	if request.UIURL != nil {
		controller.UIURL = *request.UIURL
	}

	if request.CredentialRef != nil {
		controller.CredentialRef = *request.CredentialRef
	}

	if request.UseAssetCredentials != nil {
		controller.UseAssetCredentials = *request.UseAssetCredentials
	}

	if err := s.repository.CreateController(c.Request.Context(), controller); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionCreate, model.ResourceTypeController, controller.ID, controllerChanges(&request))

	// the secret mirrors controller type/address/port, refresh it
	s.resyncAsset(c, asset, nil, nil)

	c.JSON(http.StatusCreated, controller)
}

func (s *Server) patchController(c *gin.Context) {
	controller, ok := s.controllerFromPath(c)
	if !ok {
		return
	}

	var request controllerRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err.Error())
		return
	}

	if request.Type != nil && !request.Type.Valid() {
		badRequest(c, "unsupported controller type: "+string(*request.Type))
		return
	}

	vaultRelevant := request.Type != nil || request.Address != nil || request.Port != nil || request.UIURL != nil

	if request.Type != nil {
		controller.Type = *request.Type
	}

	if request.Address != nil {
		controller.Address = *request.Address
	}

	if request.Port != nil {
		controller.Port = *request.Port
	}

	if request.UIURL != nil {
		controller.UIURL = *request.UIURL
	}

	if request.CredentialRef != nil {
		controller.CredentialRef = *request.CredentialRef
	}

	if request.UseAssetCredentials != nil {
		controller.UseAssetCredentials = *request.UseAssetCredentials
	}

	if err := s.repository.UpdateController(c.Request.Context(), controller); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionUpdate, model.ResourceTypeController, controller.ID, controllerChanges(&request))

	if vaultRelevant {
		if asset, err := s.repository.AssetByID(c.Request.Context(), controller.AssetID); err == nil {
			s.resyncAsset(c, asset, nil, nil)
		}
	}

	c.JSON(http.StatusOK, controller)
}

func (s *Server) deleteController(c *gin.Context) {
	controller, ok := s.controllerFromPath(c)
	if !ok {
		return
	}

	if err := s.repository.DeleteController(c.Request.Context(), controller.ID); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionDelete, model.ResourceTypeController, controller.ID, map[string]interface{}{
		"address": controller.Address,
	})

	if asset, err := s.repository.AssetByID(c.Request.Context(), controller.AssetID); err == nil {
		s.resyncAsset(c, asset, nil, nil)
	}

	c.Status(http.StatusNoContent)
}

// testController probes the controller's management port over TCP.
func (s *Server) testController(c *gin.Context) {
	controller, ok := s.controllerFromPath(c)
	if !ok {
		return
	}

	address := net.JoinHostPort(controller.Address, strconv.Itoa(controller.Port))

	start := time.Now()

	conn, err := net.DialTimeout("tcp", address, controllerProbeTimeout)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"reachable": false, "error": err.Error()})
		return
	}

	defer conn.Close()

	c.JSON(http.StatusOK, gin.H{
		"reachable":  true,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

func (s *Server) controllerFromPath(c *gin.Context) (*model.ManagementController, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}

	controller, err := s.repository.ControllerByID(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return nil, false
	}

	return controller, true
}

func controllerChanges(request *controllerRequest) map[string]interface{} {
	changes := map[string]interface{}{}

	if request.Type != nil {
		changes["type"] = string(*request.Type)
	}

	addChange(changes, "address", request.Address)
	addChange(changes, "ui_url", request.UIURL)
	addChange(changes, "credential_ref", request.CredentialRef)

	if request.Port != nil {
		changes["port"] = *request.Port
	}

	if request.UseAssetCredentials != nil {
		changes["use_asset_credentials"] = *request.UseAssetCredentials
	}

	return changes
}

func (s *Server) listUsers(c *gin.Context) {
	offset, limit := pagination(c)

	users, total, err := s.repository.ListUsers(c.Request.Context(), offset, limit)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "total": total})
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := s.repository.UserByID(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// userRequest creates or patches a user record.
type userRequest struct {
	Username   *string `json:"username,omitempty"`
	FullName   *string `json:"full_name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
	Title      *string `json:"title,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

func (s *Server) createUser(c *gin.Context) {
	var request userRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err.Error())
		return
	}

	if request.Username == nil || request.FullName == nil {
		badRequest(c, "username and full_name are required")
		return
	}

	user := &model.User{
		ID:       uuid.New(),
		Username: *request.Username,
		FullName: *request.FullName,
		Active:   true,
	}

	applyUserRequest(user, &request)

	if err := s.repository.CreateUser(c.Request.Context(), user); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionCreate, model.ResourceTypeUser, user.ID, map[string]interface{}{
		"username": user.Username,
	})

	c.JSON(http.StatusCreated, user)
}

func (s *Server) patchUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := s.repository.UserByID(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}

	var request userRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err.Error())
		return
	}

	if request.Username != nil {
		user.Username = *request.Username
	}

	if request.FullName != nil {
		user.FullName = *request.FullName
	}

	applyUserRequest(user, &request)

	if err := s.repository.UpdateUser(c.Request.Context(), user); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionUpdate, model.ResourceTypeUser, user.ID, map[string]interface{}{
		"username": user.Username,
	})

	c.JSON(http.StatusOK, user)
}

func applyUserRequest(user *model.User, request *userRequest) {
	if request.Email != nil {
		user.Email = *request.Email
	}

	if request.Department != nil {
		user.Department = *request.Department
	}

	if request.Title != nil {
		user.Title = *request.Title
	}

	if request.Active != nil {
		user.Active = *request.Active
	}
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.repository.DeleteUser(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionDelete, model.ResourceTypeUser, id, nil)

	c.Status(http.StatusNoContent)
}

func (s *Server) listApplications(c *gin.Context) {
	offset, limit := pagination(c)

	applications, total, err := s.repository.ListApplications(c.Request.Context(), offset, limit)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": applications, "total": total})
}

func (s *Server) getApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	application, err := s.repository.ApplicationByID(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, application)
}

// applicationRequest creates or patches an application record.
type applicationRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	AccessURL   *string `json:"access_url,omitempty"`
	InternalURL *string `json:"internal_url,omitempty"`

	Environment     *model.ApplicationEnvironment `json:"environment,omitempty"`
	ApplicationType *string                       `json:"application_type,omitempty"`
	Version         *string                       `json:"version,omitempty"`
	Port            *int                          `json:"port,omitempty"`
	Status          *string                       `json:"status,omitempty"`
	Criticality     *string                       `json:"criticality,omitempty"`

	PrimaryContactID *uuid.UUID `json:"primary_contact_id,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
}

func (s *Server) createApplication(c *gin.Context) {
	var request applicationRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err.Error())
		return
	}

	if request.Name == nil {
		badRequest(c, "name is required")
		return
	}

	application := &model.Application{
		ID:          uuid.New(),
		Name:        *request.Name,
		Environment: model.AppEnvProduction,
		Status:      "active",
		Criticality: "medium",
	}

	applyApplicationRequest(application, &request)

	if err := s.repository.CreateApplication(c.Request.Context(), application); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionCreate, model.ResourceTypeApplication, application.ID, map[string]interface{}{
		"name": application.Name,
	})

	c.JSON(http.StatusCreated, application)
}

func (s *Server) patchApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	application, err := s.repository.ApplicationByID(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}

	var request applicationRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err.Error())
		return
	}

	if request.Name != nil {
		application.Name = *request.Name
	}

	applyApplicationRequest(application, &request)

	if err := s.repository.UpdateApplication(c.Request.Context(), application); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionUpdate, model.ResourceTypeApplication, application.ID, map[string]interface{}{
		"name": application.Name,
	})

	c.JSON(http.StatusOK, application)
}

func applyApplicationRequest(application *model.Application, request *applicationRequest) {
	if request.Description != nil {
		application.Description = *request.Description
	}

	if request.AccessURL != nil {
		application.AccessURL = *request.AccessURL
	}

	if request.InternalURL != nil {
		application.InternalURL = *request.InternalURL
	}

	if request.Environment != nil {
		application.Environment = *request.Environment
	}

	if request.ApplicationType != nil {
		application.ApplicationType = *request.ApplicationType
	}

	if request.Version != nil {
		application.Version = *request.Version
	}

	if request.Port != nil {
		application.Port = *request.Port
	}

	if request.Status != nil {
		application.Status = *request.Status
	}

	if request.Criticality != nil {
		application.Criticality = *request.Criticality
	}

	if request.PrimaryContactID != nil {
		application.PrimaryContactID = request.PrimaryContactID
	}

	if request.Notes != nil {
		application.Notes = *request.Notes
	}
}

func (s *Server) deleteApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.repository.DeleteApplication(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}

	s.recordAudit(c, model.AuditActionDelete, model.ResourceTypeApplication, id, nil)

	c.Status(http.StatusNoContent)
}
