package main

import (
	"os"

	"github.com/fjod/go_cart/cart-client/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
