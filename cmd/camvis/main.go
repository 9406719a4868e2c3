// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/devblok/camvis/core"
	"github.com/devblok/camvis/core/renderer"
	"github.com/devblok/camvis/device"
	"github.com/devblok/camvis/utility/kar"
	"github.com/devblok/camvis/window"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	cfg, err := core.LoadConfiguration(os.Args[0], os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if cfg.Renderer.Validation {
		log.SetLevel(log.DebugLevel)
	}

	var prof interface{ Stop() }
	if cfg.CPUProfile != "" {
		prof = profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.CPUProfile), profile.NoShutdownHook)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log.StandardLogger())
	stop()
	if prof != nil {
		prof.Stop()
	}
	if err != nil {
		log.WithError(err).Fatal("Exiting")
	}
}

func run(ctx context.Context, cfg core.Configuration, logger log.FieldLogger) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return errors.Wrap(err, "sdl.Init()")
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}
	defer sdl.VulkanUnloadLibrary()

	win, err := window.New(cfg.Window, logger)
	if err != nil {
		return err
	}
	defer win.Destroy()

	instance, err := device.NewInstance(device.DefaultApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), device.InstanceConfiguration{
		Validation: cfg.Renderer.Validation,
		Extensions: win.VulkanInstanceExtensions(),
	}, logger)
	if err != nil {
		return err
	}
	defer instance.Destroy()

	surface, err := win.CreateSurface(instance.Handle())
	if err != nil {
		return err
	}
	instance.SetSurface(surface)

	vkctx, err := instance.NewContext(cfg.Renderer.DeviceExtensions)
	if err != nil {
		return err
	}
	defer vkctx.Destroy()

	logger.WithFields(log.Fields{
		"name": vkctx.Info.Name,
		"type": vkctx.Info.Type,
	}).Info("Using device")

	var shaders renderer.ShaderSource = renderer.Shaders
	if cfg.Renderer.ShaderArchive != "" {
		archive, err := kar.OpenFile(cfg.Renderer.ShaderArchive)
		if err != nil {
			return err
		}
		defer archive.Close()
		shaders = archive
	}

	r, err := renderer.New(vkctx, shaders, logger)
	if err != nil {
		return err
	}
	defer r.Release()

	surfaces, err := core.NewSurfaceManager(r, cfg.Renderer, logger)
	if err != nil {
		return err
	}

	driver := core.NewFrameDriver(core.FrameDriverConfiguration{
		Device:         r,
		Queue:          r,
		Events:         win,
		Surfaces:       surfaces,
		Pipeline:       r.Pipeline(),
		Geometry:       r.Geometry(),
		State:          core.NewRenderState(win.Size(), win.ScaleFactor()),
		AcquireTimeout: cfg.Renderer.AcquireTimeout,
		Time:           cfg.Time,
		Log:            logger,
	})

	if err := driver.Run(ctx); err != nil {
		return err
	}

	logger.WithField("frames", driver.Frames()).Info("Window closed")
	return nil
}
