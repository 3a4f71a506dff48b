package main

import (
	"github.com/mercatokart/storefront/cmd"
)

func main() {
	cmd.Start()
}
