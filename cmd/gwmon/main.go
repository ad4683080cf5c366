package main

import (
	"flag"
	"log"
	"os"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/gwbench/pkg/display/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883"
)

func init() {
	if val := os.Getenv("GWBENCH_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub(mqtt.TopicRoot+"/+/+", mqtt.Handler(func(topic string, payload []byte) {
		id, event, ok := mqtt.SplitTopic(topic)
		if !ok {
			return
		}
		if event == mqtt.TopicMeta {
			if len(payload) == 0 {
				log.Printf("%s: offline", id)
				return
			}
			log.Printf("%s: %s", id, string(payload))
			return
		}
		msg, err := mqtt.DecodeEvent(event, payload)
		if err != nil {
			log.Printf("%s: bad %s event: %v", id, event, err)
			return
		}
		log.Printf("%s: [%s] %s", id, event, proto.CompactTextString(msg))
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
