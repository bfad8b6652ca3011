// Package main provides a one-shot utility for workspace grant key
// generation.
//
// It emits the asymmetric keypair used to sign and verify workspace
// access grants.
package main

import (
	"os"

	"github.com/craftlane/craftlane/internal/platform/config"
	"github.com/craftlane/craftlane/internal/tools/grantkey"
)

func main() {
	if err := grantkey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate workspace grant key: %v", err)
	}
}
