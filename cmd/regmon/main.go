package main

import (
	"flag"
	"log"
	"strings"

	env "github.com/robotalks/regconsole/pkg/env/host"
	"github.com/robotalks/regconsole/pkg/telemetry"
)

var (
	device = "+"
)

func init() {
	env.SetupMonitorFlags()
	flag.StringVar(&device, "id", device, "Device ID to monitor, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := telemetry.NewQueueFromURL(env.Default().MQTTBrokerURL)
	if err != nil {
		log.Fatalln(err)
	}
	token := q.Connect()
	if token.Wait(); token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	q.Sub(device+"/"+telemetry.StatusTopic, func(topic string, payload []byte) {
		s, err := telemetry.Decode(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, s)
	})
	q.Sub(device+"/"+telemetry.DebugTopic, func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, strings.TrimRight(string(payload), "\r\n"))
	})
	<-(chan struct{})(nil)
}
