package mqttsink

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/travel-bot/internal/models"
)

type fakeToken struct {
	err      error
	finished bool
}

func (t *fakeToken) Wait() bool                     { return t.finished }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.finished }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.finished {
		close(ch)
	}
	return ch
}

type publish struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	published []publish
	token     *fakeToken
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, publish{topic, qos, retained, payload.([]byte)})
	return f.token
}

func TestSink_EmitPosition(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{finished: true}}
	sink := New(pub)

	require.NoError(t, sink.EmitPosition("pay-1", models.Location{Latitude: 10, Longitude: 20.1}))
	require.Len(t, pub.published, 1)
	assert.Equal(t, "travel/pay-1", pub.published[0].topic)
	assert.Equal(t, byte(0), pub.published[0].qos)
	assert.False(t, pub.published[0].retained)
	assert.JSONEq(t, `{"latitude":10,"longitude":20.1}`, string(pub.published[0].payload))
}

func TestSink_EmitPosition_Errors(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{finished: true, err: errors.New("not connected")}}
	assert.ErrorContains(t, New(pub).EmitPosition("pay-1", models.Location{}), "not connected")

	pub = &fakePublisher{token: &fakeToken{finished: false}}
	assert.ErrorContains(t, New(pub).EmitPosition("pay-1", models.Location{}), "timed out")
}
