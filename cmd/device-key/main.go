// device-key prints the bcrypt hash for a device key so it can be placed
// in DEVICE_KEY_HASH. Run once when provisioning the shop machine.
//
// Usage:
//   go run ./cmd/device-key -key <plain-device-key>
package main

import (
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/qist_backend/utils"
)

func main() {
	key := flag.String("key", "", "plain device key to hash")
	flag.Parse()

	if *key == "" {
		fmt.Fprintln(os.Stderr, "usage: device-key -key <plain-device-key>")
		os.Exit(2)
	}

	hashed, err := utils.HashDeviceKey(*key)
	utils.ErrorPanic(err)

	fmt.Printf("DEVICE_KEY_HASH=%s\n", string(hashed))
}
