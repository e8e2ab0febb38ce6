package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"

	env "github.com/robotalks/regconsole/pkg/env/device"
	fx "github.com/robotalks/regconsole/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := env.LoadConfig()
	if err != nil {
		log.Fatalln(err)
	}
	dev := conf.MustNewEnv()
	defer dev.Close()

	ctx := fx.NewRunner().HandleSignals().Context
	fx.NewLoop().Add(dev).RunOrFail(ctx)
}
