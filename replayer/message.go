package replayer

import (
	"math"
	"math/rand"
	"time"
)

// Message is one synthetic device check-in, mirroring what real
// firmware reports. The optional fields appear with fixed
// probabilities so the ingestion pipeline sees both shapes.
type Message struct {
	Event        string   `json:"ev"`
	RSS          int      `json:"rss"`
	Milliseconds int      `json:"ms"`
	SecondsUp    int      `json:"s"`
	MemoryMap    int      `json:"mm"`
	Timestamp    *int64   `json:"ts,omitempty"`
	Temperature  *float64 `json:"temp,omitempty"`
}

const (
	timestampProbability   = 0.3
	temperatureProbability = 0.2

	temperatureMin = 35.5
	temperatureMax = 85.0
)

// generateMessage draws every field independently from the given
// generator, one fresh message per call.
func generateMessage(r *rand.Rand) *Message {
	message := &Message{
		Event:        "check",
		RSS:          20 + r.Intn(76),           // [20, 95]
		Milliseconds: 1000000 + r.Intn(9000000), // [1000000, 9999999]
		SecondsUp:    1 + r.Intn(86400),         // [1, 86400]
		MemoryMap:    10000 + r.Intn(90000),     // [10000, 99999]
	}

	if r.Float64() < timestampProbability {
		ts := time.Now().Unix()
		message.Timestamp = &ts
	}

	if r.Float64() < temperatureProbability {
		temp := temperatureMin + r.Float64()*(temperatureMax-temperatureMin)
		temp = math.Round(temp*100) / 100
		message.Temperature = &temp
	}

	return message
}
