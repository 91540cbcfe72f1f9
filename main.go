package main

import (
	relay "github.com/putto11262002/roomrelay/app"
)

func main() {
	app, err := relay.New(nil, nil)
	if err != nil {
		relay.Failed(1, "failed to start: %v\n", err)
	}
	app.Start()
}
