package mockservice

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"example.com/backstage/tools/loadtest/internal/deviceapi"
)

// App is an in-memory rendition of the device service endpoints the
// load-test tooling talks to. It exists so provisioning and replaying
// can be exercised without a real backend.
type App struct {
	host string
	port int
	Dependencies
}

type Dependencies struct {
	store  *store
	engine *gin.Engine
}

type store struct {
	mu            sync.Mutex
	nextOrgID     uint
	nextDeviceID  uint
	organizations map[uint]*deviceapi.Organization
	devices       map[string]*deviceapi.Device
	messages      []deviceapi.MessageEnvelope
}

func DefaultDependencies() Dependencies {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	return Dependencies{newStore(), engine}
}

// shortcut to use default dependencies
func NewApp(host string, port int) *App {
	return NewAppWithDeps(host, port, DefaultDependencies())
}

func NewAppWithDeps(host string, port int, deps Dependencies) *App {
	app := &App{
		Dependencies: deps,
		host:         host,
		port:         port,
	}

	engine := deps.engine
	apiGroup := engine.Group("/api/v1")
	{
		apiGroup.POST("/organizations", createOrganizationHandler(deps.store))
		apiGroup.POST("/devices", createDeviceHandler(deps.store))
		apiGroup.POST("/devices/messages", deviceMessageHandler(deps.store))
	}

	return app
}

func (a *App) Start() error {
	log.Infof("Mock device service listening on %s:%d", a.host, a.port)
	return a.engine.Run(fmt.Sprintf("%s:%d", a.host, a.port))
}

// Engine exposes the router so tests can mount it on an httptest server.
func (a *App) Engine() http.Handler {
	return a.engine
}

// MessageCount reports how many envelopes the ingestion endpoint has
// accepted so far.
func (a *App) MessageCount() int {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return len(a.store.messages)
}

func newStore() *store {
	return &store{
		nextOrgID:     1,
		nextDeviceID:  1,
		organizations: make(map[uint]*deviceapi.Organization),
		devices:       make(map[string]*deviceapi.Device),
	}
}

func createOrganizationHandler(s *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deviceapi.CreateOrganizationRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unable to parse JSON body"})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		org := &deviceapi.Organization{
			ID:      s.nextOrgID,
			Name:    req.Name,
			URI:     req.URI,
			Persist: req.Persist,
		}
		s.nextOrgID++
		s.organizations[org.ID] = org

		c.JSON(http.StatusCreated, org)
	}
}

func createDeviceHandler(s *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deviceapi.CreateDeviceRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unable to parse JSON body"})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if _, found := s.organizations[req.OrganizationID]; !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
			return
		}

		device := &deviceapi.Device{
			ID:             s.nextDeviceID,
			UID:            req.UID,
			Serial:         req.Serial,
			OrganizationID: req.OrganizationID,
		}
		s.nextDeviceID++
		s.devices[device.UID] = device

		c.JSON(http.StatusCreated, device)
	}
}

// The real ingestion endpoint acknowledges with a bare 200, unlike the
// creation endpoints which answer 201.
func deviceMessageHandler(s *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var env deviceapi.MessageEnvelope
		if err := c.BindJSON(&env); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unable to parse JSON body"})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if _, found := s.devices[env.DeviceUID]; !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		s.messages = append(s.messages, env)

		c.JSON(http.StatusOK, gin.H{})
	}
}
