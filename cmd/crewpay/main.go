package main

import (
	"os"

	"github.com/jbandu/crew-pay/cmd/crewpay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
