// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command camvisinfo prints the Vulkan physical devices as JSON.
package main

import (
	"encoding/json"
	"os"

	"github.com/devblok/camvis/device"
	log "github.com/sirupsen/logrus"
)

func main() {
	instance, err := device.NewInstance(device.DefaultApplicationInfo, nil, device.InstanceConfiguration{}, log.StandardLogger())
	if err != nil {
		log.WithError(err).Fatal("Creating Vulkan instance failed")
	}
	defer instance.Destroy()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(instance.PhysicalDevicesInfo()); err != nil {
		log.WithError(err).Error("Encoding device info failed")
	}
}
