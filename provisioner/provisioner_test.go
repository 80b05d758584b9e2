package provisioner

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"

	"example.com/backstage/tools/loadtest/internal/artifact"
	"example.com/backstage/tools/loadtest/internal/deviceapi"
	"example.com/backstage/tools/loadtest/internal/mockservice"
)

type ProvisionerTestSuite struct {
	suite.Suite
	server *httptest.Server
	fs     afero.Fs
}

func TestProvisionerTestSuite(t *testing.T) {
	suite.Run(t, new(ProvisionerTestSuite))
}

func (suite *ProvisionerTestSuite) SetupTest() {
	app := mockservice.NewApp("localhost", 0)
	suite.server = httptest.NewServer(app.Engine())
	suite.fs = afero.NewMemMapFs()
}

func (suite *ProvisionerTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *ProvisionerTestSuite) newProvisioner(config *Config) *Provisioner {
	config.BaseURL = suite.server.URL
	config.OutputPath = "devices.json"

	p, err := NewProvisionerWithFs(config, suite.fs)
	suite.Require().NoError(err)

	return p
}

func (suite *ProvisionerTestSuite) Test_ProvisionThreeDevices() {
	p := suite.newProvisioner(&Config{Count: 3})

	err := p.Run()
	suite.NoError(err)

	records, err := artifact.Load(suite.fs, "devices.json")
	suite.Require().NoError(err)
	suite.Require().Len(records, 3)

	suite.Equal("LOADTEST0000", records[0].Serial)
	suite.Equal("LOADTEST0001", records[1].Serial)
	suite.Equal("LOADTEST0002", records[2].Serial)

	seen := map[string]bool{}
	for _, record := range records {
		suite.NotZero(record.ID)
		suite.NotEmpty(record.UID)
		suite.False(seen[record.UID], "device uids must be unique")
		seen[record.UID] = true
	}
}

func (suite *ProvisionerTestSuite) Test_ReuseExistingOrganization() {
	// An organization id of 1 does not exist on a fresh mock store, so
	// device creation can only succeed if the provisioner first creates
	// the organization itself. With an explicit id it must skip that
	// step; we provision one device through a pre-created org instead.
	client, err := deviceapi.NewClient(&deviceapi.Config{BaseURL: suite.server.URL})
	suite.Require().NoError(err)

	org, err := client.CreateOrganization(&deviceapi.CreateOrganizationRequest{Name: "existing"})
	suite.Require().NoError(err)

	p := suite.newProvisioner(&Config{Count: 1, OrgID: org.ID})
	suite.NoError(p.Run())

	records, err := artifact.Load(suite.fs, "devices.json")
	suite.Require().NoError(err)
	suite.Len(records, 1)
}

func (suite *ProvisionerTestSuite) Test_OrganizationCreationFailureIsFatal() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("database unavailable"))
	}))
	defer server.Close()

	p, err := NewProvisionerWithFs(&Config{
		BaseURL:    server.URL,
		Count:      3,
		OutputPath: "devices.json",
	}, suite.fs)
	suite.Require().NoError(err)

	err = p.Run()
	suite.Require().Error(err)

	var statusErr *deviceapi.StatusError
	suite.Require().ErrorAs(err, &statusErr)
	suite.Equal(http.StatusInternalServerError, statusErr.Code)

	// No artifact is written when the run aborts on the organization.
	exists, _ := afero.Exists(suite.fs, "devices.json")
	suite.False(exists)
}

// Test_PartialDeviceFailure provisions 5 devices against a service
// that rejects the 3rd creation; the run continues and the artifact
// holds the 4 that succeeded.
func (suite *ProvisionerTestSuite) Test_PartialDeviceFailure() {
	var deviceCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/organizations":
			json.NewEncoder(w).Encode(deviceapi.Organization{ID: 1})
		case "/api/v1/devices":
			call := atomic.AddInt32(&deviceCalls, 1)
			if call == 3 {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("device rejected"))
				return
			}

			var req deviceapi.CreateDeviceRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(deviceapi.Device{ID: uint(call), UID: req.UID, Serial: req.Serial})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p, err := NewProvisionerWithFs(&Config{
		BaseURL:    server.URL,
		Count:      5,
		OutputPath: "devices.json",
	}, suite.fs)
	suite.Require().NoError(err)
	suite.NoError(p.Run())

	records, err := artifact.Load(suite.fs, "devices.json")
	suite.Require().NoError(err)
	suite.Require().Len(records, 4)

	// Index 2 was skipped, the remaining serials keep their indexes.
	expected := []string{"LOADTEST0000", "LOADTEST0001", "LOADTEST0003", "LOADTEST0004"}
	for i, record := range records {
		suite.Equal(expected[i], record.Serial)
	}
}

func (suite *ProvisionerTestSuite) Test_SerialsAreZeroPadded() {
	for i, expected := range map[int]string{0: "LOADTEST0000", 42: "LOADTEST0042", 9999: "LOADTEST9999"} {
		suite.Equal(expected, fmt.Sprintf("%s%04d", serialPrefix, i))
	}
}
