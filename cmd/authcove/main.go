package main

import (
	"github.com/authcove/authcove/app"
)

func main() {
	app.New(nil).Run()
}
