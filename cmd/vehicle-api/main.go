package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/vehicle-api/cmd/vehicle-api/app"
)

func main() {
	app.NewApp().Run()
}
