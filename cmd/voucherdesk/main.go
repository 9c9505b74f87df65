package main

import (
	"os"

	"github.com/voucherdesk/voucherdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
