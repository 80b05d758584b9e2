package replayer

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"example.com/backstage/tools/loadtest/internal"
	"example.com/backstage/tools/loadtest/internal/artifact"
	"example.com/backstage/tools/loadtest/internal/deviceapi"
	"example.com/backstage/tools/loadtest/internal/metrics"
)

const sentVia = "locust-test"

// User simulates one device for its whole lifetime: it owns a single
// device record, private random state and nothing else, so users never
// contend with each other.
type User struct {
	name    string
	device  artifact.Record
	client  *deviceapi.Client
	rnd     *rand.Rand
	waitMin time.Duration
	waitMax time.Duration
}

func newUser(name string, device artifact.Record, client *deviceapi.Client, rnd *rand.Rand, waitMin, waitMax time.Duration) *User {
	return &User{
		name:    name,
		device:  device,
		client:  client,
		rnd:     rnd,
		waitMin: waitMin,
		waitMax: waitMax,
	}
}

func (u *User) run(ctx context.Context) {
	log.Infof("User %s simulating device: %s (UID: %s)", u.name, u.device.Serial, u.device.UID)

	internal.RepeatRandom("replayer.user."+u.name, u.sendMessage, u.waitMin, u.waitMax, u.rnd, ctx)
}

// sendMessage synthesizes one telemetry message and posts it wrapped
// in the ingestion envelope. Only a strict 200 counts as success;
// other statuses, 2xx included, are recorded as failures and never
// retried.
func (u *User) sendMessage() {
	message := generateMessage(u.rnd)

	body, err := json.Marshal(message)
	if err != nil {
		log.Errorf("User %s could not encode a message: %s", u.name, err)
		metrics.SendsTotal.WithLabelValues("failure").Inc()
		return
	}

	envelope := &deviceapi.MessageEnvelope{
		DeviceUID: u.device.UID,
		Message:   string(body),
		SentVia:   sentVia,
	}

	start := time.Now()
	result, err := u.client.SendMessage(envelope)
	metrics.SendDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SendsTotal.WithLabelValues("failure").Inc()
		log.WithField("device", u.device.Serial).Errorf("Failed to send message: %s", err)
		return
	}

	if result.Code != http.StatusOK {
		metrics.SendsTotal.WithLabelValues("failure").Inc()
		log.WithFields(log.Fields{
			"device": u.device.Serial,
			"status": result.Code,
		}).Errorf("Failed to send message: %d - %s", result.Code, result.Body)
		return
	}

	metrics.SendsTotal.WithLabelValues("success").Inc()
}
