package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/battery_under_voltage/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "battery_under_voltage", "number_id extract")
}

func TestInputNumberCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/battery_under_voltage/state"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestTopicBuilders(t *testing.T) {

	assert := assert.New(t)

	c := &MQTTClient{}
	c.cfg.BaseTopic = "inverterd2mqtt"

	assert.Equal("inverterd2mqtt/bridge/state", c.BridgeStateTopic())
	assert.Equal("inverterd2mqtt/sensor/battery_voltage/state", c.SensorStateTopic("battery_voltage"))
	assert.Equal("inverterd2mqtt/number/battery_under_voltage/set", c.InputNumberCommandTopic("battery_under_voltage"))
	assert.Equal("inverterd2mqtt/number/battery_under_voltage/state", c.InputNumberStateTopic("battery_under_voltage"))
}
