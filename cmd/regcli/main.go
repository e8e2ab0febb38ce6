package main

import (
	"github.com/robotalks/regconsole/pkg/cli/sh"
	env "github.com/robotalks/regconsole/pkg/env/host"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
