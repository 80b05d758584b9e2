package provisioner

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"example.com/backstage/tools/loadtest/internal/artifact"
	"example.com/backstage/tools/loadtest/internal/deviceapi"
	"example.com/backstage/tools/loadtest/internal/metrics"
)

const (
	defaultOrgName = "Load Test Organization"
	orgURI         = "load-test-org"
	serialPrefix   = "LOADTEST"
)

// Provisioner creates an organization and a batch of synthetic devices
// through the device service API, then persists their identifiers for
// the replayer to consume.
type Provisioner struct {
	config *Config
	client *deviceapi.Client
	fs     afero.Fs
}

type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	Count      int           `mapstructure:"count"`
	OrgID      uint          `mapstructure:"org_id"`
	OrgName    string        `mapstructure:"org_name"`
	OutputPath string        `mapstructure:"output_path"`
	Pause      time.Duration `mapstructure:"pause"`
}

// NewProvisioner returns a new instance of Provisioner with the given configuration
func NewProvisioner(config *Config) (*Provisioner, error) {
	return NewProvisionerWithFs(config, afero.NewOsFs())
}

// NewProvisionerWithFs allows swapping the filesystem the artifact is
// written to, so tests can capture it in memory.
func NewProvisionerWithFs(config *Config, fs afero.Fs) (*Provisioner, error) {
	client, err := deviceapi.NewClient(&deviceapi.Config{BaseURL: config.BaseURL})
	if err != nil {
		return nil, errors.Wrap(err, "could not create a device service client")
	}

	if config.OrgName == "" {
		config.OrgName = defaultOrgName
	}

	return &Provisioner{
		config: config,
		client: client,
		fs:     fs,
	}, nil
}

// Run provisions the organization (unless an existing id was given)
// and then the devices. An organization failure aborts the whole run;
// device failures only shrink the final batch.
func (p *Provisioner) Run() error {
	orgID := p.config.OrgID
	if orgID == 0 {
		var err error
		orgID, err = p.createOrganization()
		if err != nil {
			return err
		}
	}

	_, err := p.createDevices(orgID)
	return err
}

func (p *Provisioner) createOrganization() (uint, error) {
	org, err := p.client.CreateOrganization(&deviceapi.CreateOrganizationRequest{
		Name:    p.config.OrgName,
		URI:     orgURI,
		Persist: true,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to create organization")
	}

	log.Infof("Created organization with ID: %d", org.ID)

	return org.ID, nil
}

func (p *Provisioner) createDevices(orgID uint) ([]artifact.Record, error) {
	log.Infof("Creating %d devices...", p.config.Count)

	records := []artifact.Record{}
	for i := 0; i < p.config.Count; i++ {
		device, err := p.client.CreateDevice(&deviceapi.CreateDeviceRequest{
			UID:            uuid.NewString(),
			Serial:         fmt.Sprintf("%s%04d", serialPrefix, i),
			OrganizationID: orgID,
			AllowUpdates:   true,
			Active:         true,
		})
		if err != nil {
			log.Errorf("Failed to create device %d: %s", i+1, err)
			p.pause()
			continue
		}

		records = append(records, artifact.Record{
			ID:     device.ID,
			UID:    device.UID,
			Serial: device.Serial,
		})
		metrics.DevicesProvisioned.Inc()

		if len(records)%100 == 0 {
			log.Infof("Created %d devices", len(records))
		}

		p.pause()
	}

	if err := artifact.Save(p.fs, p.config.OutputPath, records); err != nil {
		return nil, err
	}

	log.Infof("Created %d devices successfully. Device data saved to %s", len(records), p.config.OutputPath)

	return records, nil
}

// pause keeps the request rate bounded so the device service is not
// overwhelmed by the provisioning loop itself.
func (p *Provisioner) pause() {
	if p.config.Pause > 0 {
		time.Sleep(p.config.Pause)
	}
}
