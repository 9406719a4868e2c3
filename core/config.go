// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"flag"
	"io/ioutil"
	"strconv"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
)

// PresentModeEnv names the environment variable used as the -mode default.
const PresentModeEnv = "CAMVIS_PRESENT_MODE"

// PresentMode is the swapchain presentation mode.
type PresentMode int

// Supported presentation modes
const (
	PresentModeImmediate PresentMode = iota
	PresentModeMailbox
	PresentModeFifo
	PresentModeFifoRelaxed
)

var presentModeNames = map[PresentMode]string{
	PresentModeImmediate:   "immediate",
	PresentModeMailbox:     "mailbox",
	PresentModeFifo:        "fifo",
	PresentModeFifoRelaxed: "relaxed",
}

// ParsePresentMode maps a mode name to a PresentMode.
// Unknown names yield a *ConfigurationError wrapping ErrUnknownPresentMode.
func ParsePresentMode(s string) (PresentMode, error) {
	for mode, name := range presentModeNames {
		if name == s {
			return mode, nil
		}
	}
	return PresentModeFifo, &ConfigurationError{
		Option: "mode",
		Value:  s,
		Err:    ErrUnknownPresentMode,
	}
}

func (m PresentMode) String() string {
	if name, ok := presentModeNames[m]; ok {
		return name
	}
	return "PresentMode(" + strconv.Itoa(int(m)) + ")"
}

// Configuration defines a global application configuration
type Configuration struct {
	Window   WindowConfiguration
	Renderer RendererConfiguration
	Time     TimeConfiguration

	// CPUProfile is a directory to write a CPU profile into, empty disables it.
	CPUProfile string
}

// WindowConfiguration is used to configure the window
type WindowConfiguration struct {
	Title  string
	Width  uint32
	Height uint32
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	PresentMode PresentMode

	// ImageCount is the minimum number of swapchain images,
	// the surface minimum is used if lower.
	ImageCount uint32

	// AcquireTimeout bounds waiting for a swapchain image, 0 waits forever.
	AcquireTimeout time.Duration

	DeviceExtensions []string

	// ShaderArchive is a kar archive to load compiled shaders from,
	// empty uses the ones built into the binary.
	ShaderArchive string

	// Validation enables Vulkan validation layers and debug logging.
	Validation bool
}

// DefaultConfiguration is used when no options are given.
var DefaultConfiguration = Configuration{
	Window: WindowConfiguration{
		Title:  "Camera",
		Width:  2448 / 4,
		Height: 2048 / 4,
	},
	Renderer: RendererConfiguration{
		PresentMode: PresentModeFifo,
		DeviceExtensions: []string{
			"VK_KHR_swapchain",
		},
	},
}

// LoadConfiguration builds the configuration from command line arguments
// and the environment. An explicit -mode wins over CAMVIS_PRESENT_MODE,
// which may also come from the dotenv file given with -env.
func LoadConfiguration(name string, args []string) (Configuration, error) {
	cfg := DefaultConfiguration
	cfg.Renderer.DeviceExtensions = append([]string(nil), DefaultConfiguration.Renderer.DeviceExtensions...)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)

	var envFile, mode string
	fs.StringVar(&mode, "mode", "", "Vulkan present mode: immediate, mailbox, fifo or relaxed")
	fs.StringVar(&mode, "m", "", "Shorthand for -mode")
	fs.StringVar(&envFile, "env", "", "Load environment variables from a dotenv file")
	fs.StringVar(&cfg.Renderer.ShaderArchive, "shaders", "", "Load compiled shaders from a kar archive")
	fs.BoolVar(&cfg.Renderer.Validation, "vkdbg", false, "Load Vulkan validation layers")
	fs.StringVar(&cfg.CPUProfile, "cpuprof", "", "Profile CPU usage into the given directory")
	fs.DurationVar(&cfg.Renderer.AcquireTimeout, "acquire-timeout", 0, "Swapchain image acquire timeout, 0 waits forever")
	fs.DurationVar(&cfg.Time.StatsInterval, "stats", 0, "Report frames per second at this interval, 0 disables")
	imageCount := fs.Uint("images", 0, "Minimum number of swapchain images")

	if err := fs.Parse(args); err != nil {
		return Configuration{}, err
	}
	cfg.Renderer.ImageCount = uint32(*imageCount)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Configuration{}, &ConfigurationError{Option: "env", Value: envFile, Err: err}
		}
	}
	envy.Reload()

	modeSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "mode" || f.Name == "m" {
			modeSet = true
		}
	})
	if !modeSet {
		mode = envy.Get(PresentModeEnv, PresentModeFifo.String())
	}

	presentMode, err := ParsePresentMode(mode)
	if err != nil {
		return Configuration{}, err
	}
	cfg.Renderer.PresentMode = presentMode

	return cfg, nil
}
