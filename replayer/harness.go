package replayer

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"example.com/backstage/tools/loadtest/internal/artifact"
	"example.com/backstage/tools/loadtest/internal/deviceapi"
	"example.com/backstage/tools/loadtest/internal/metrics"
)

// Harness owns the simulated users and their lifecycle. Each user
// picks its device at startup and keeps it until the run stops; the
// artifact records themselves are read once and never mutated.
type Harness struct {
	config    *Config
	users     []*User
	ctx       context.Context
	ctxCancel context.CancelFunc
}

type Config struct {
	ArtifactPath string        `mapstructure:"artifact_path"`
	BaseURL      string        `mapstructure:"base_url"`
	Users        int           `mapstructure:"users"`
	WaitMin      time.Duration `mapstructure:"wait_min"`
	WaitMax      time.Duration `mapstructure:"wait_max"`
	Duration     time.Duration `mapstructure:"duration"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
}

// NewHarness returns a new instance of Harness with the given configuration
func NewHarness(config *Config) (*Harness, error) {
	return NewHarnessWithFs(config, afero.NewOsFs())
}

// NewHarnessWithFs allows swapping the filesystem the artifact is read
// from, so tests can feed records from memory.
func NewHarnessWithFs(config *Config, fs afero.Fs) (*Harness, error) {
	client, err := deviceapi.NewClient(&deviceapi.Config{BaseURL: config.BaseURL})
	if err != nil {
		return nil, errors.Wrap(err, "could not create a device service client")
	}

	records, err := artifact.Load(fs, config.ArtifactPath)
	if err != nil {
		return nil, errors.Wrap(err, "no devices to replay, run the provisioner first")
	}

	if config.WaitMax < config.WaitMin {
		return nil, errors.New("wait-max must not be smaller than wait-min")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())
	harness := &Harness{
		config:    config,
		ctx:       ctx,
		ctxCancel: ctxCancel,
	}

	seed := time.Now().UnixNano()
	for i := 0; i < config.Users; i++ {
		rnd := rand.New(rand.NewSource(seed + int64(i)))
		device := records[rnd.Intn(len(records))]
		name := petname.Generate(2, "-")

		harness.users = append(harness.users, newUser(name, device, client, rnd, config.WaitMin, config.WaitMax))
	}

	return harness, nil
}

// Start runs every user until Stop is called or the configured
// duration elapses.
func (h *Harness) Start() error {
	var wg sync.WaitGroup

	if h.config.MetricsAddr != "" {
		go h.serveMetrics()
	}

	if h.config.Duration > 0 {
		timer := time.AfterFunc(h.config.Duration, h.Stop)
		defer timer.Stop()
	}

	log.Infof("Starting %d simulated users against %s...", len(h.users), h.config.BaseURL)

	for _, user := range h.users {
		wg.Add(1)
		go func(user *User, wg *sync.WaitGroup) {
			defer wg.Done()

			metrics.ActiveUsers.Inc()
			defer metrics.ActiveUsers.Dec()

			user.run(h.ctx)
		}(user, &wg)
	}

	wg.Wait()
	log.Info("All users stopped.")

	return nil
}

func (h *Harness) Stop() {
	h.ctxCancel()
}

func (h *Harness) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	log.Infof("Serving metrics on %s", h.config.MetricsAddr)
	if err := http.ListenAndServe(h.config.MetricsAddr, mux); err != nil {
		log.Errorf("Metrics endpoint stopped: %s", err)
	}
}
