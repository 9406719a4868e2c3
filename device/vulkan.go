// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const validationLayer = "VK_LAYER_LUNARG_standard_validation"

// DefaultApplicationInfo describes the camvis Vulkan application
var DefaultApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   SafeString("camvis"),
	PEngineName:        SafeString("camvis"),
}

// ErrNoSuitableDevice is returned when no physical device can render to the surface.
var ErrNoSuitableDevice = errors.New("no device with a graphics queue that can present to the surface")

// NewInstance creates a Vulkan instance. procAddr is the loader entry point
// provided by the windowing system, nil falls back to the default loader.
func NewInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg InstanceConfiguration, logger log.FieldLogger) (*Instance, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if cfg.Validation {
		cfg.Layers = append(cfg.Layers, validationLayer)
		cfg.Extensions = append(cfg.Extensions, "VK_EXT_debug_report")
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: SafeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     SafeStrings(cfg.Layers),
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateInstance()")
	}
	vk.InitInstance(instance)

	physicalDevices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	v := &Instance{
		configuration:    cfg,
		instance:         instance,
		availableDevices: physicalDevices,
		log:              logger,
	}

	if cfg.Validation {
		if err := v.setupDebugReport(); err != nil {
			v.Destroy()
			return nil, err
		}
	}

	return v, nil
}

// Instance wraps a Vulkan instance and the surface created on it.
type Instance struct {
	configuration InstanceConfiguration

	availableDevices []vk.PhysicalDevice
	surface          vk.Surface
	instance         vk.Instance
	debugReport      vk.DebugReportCallback

	log log.FieldLogger
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumeratePhysicalDevices()")
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumeratePhysicalDevices()")
	}
	return availableDevices, nil
}

func (v *Instance) setupDebugReport() error {
	logger := v.log
	dci := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(
			vk.DebugReportErrorBit |
				vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint, location uint, messageCode int32, layerPrefix string, message string, userData unsafe.Pointer) vk.Bool32 {
			entry := logger.WithFields(log.Fields{
				"layer": layerPrefix,
				"code":  messageCode,
			})
			if flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0 {
				entry.Error(message)
			} else {
				entry.Warn(message)
			}
			return vk.False
		},
	}

	var callback vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(v.instance, &dci, nil, &callback)); err != nil {
		return errors.Wrap(err, "vk.CreateDebugReportCallback()")
	}
	v.debugReport = callback
	return nil
}

// Handle returns the internal vk.Instance
func (v *Instance) Handle() vk.Instance {
	return v.instance
}

// PhysicalDevicesInfo describes every device the instance can see.
func (v *Instance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i, pd := range v.availableDevices {
		pdi[i] = describe(pd)
	}
	return pdi
}

func describe(pd vk.PhysicalDevice) PhysicalDeviceInfo {
	var info PhysicalDeviceInfo

	// Get extension info
	var numDeviceExtensions uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, nil)); err != nil {
		info.Invalid = true
	}
	deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, deviceExt)); err != nil {
		info.Invalid = true
	}
	for _, ext := range deviceExt {
		ext.Deref()
		info.Extensions = append(info.Extensions, vk.ToString(ext.ExtensionName[:]))
	}

	// Get layers info
	var numDeviceLayers uint32
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, nil)); err != nil {
		info.Invalid = true
	}
	deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, deviceLayers)); err != nil {
		info.Invalid = true
	}
	for _, layer := range deviceLayers {
		layer.Deref()
		info.Layers = append(info.Layers, vk.ToString(layer.LayerName[:]))
	}

	// Get memory info
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
	memoryProperties.Deref()
	for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
		memoryProperties.MemoryHeaps[iMem].Deref()
		info.Memory += uint(memoryProperties.MemoryHeaps[iMem].Size)
	}

	// Get general device info
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()
	info.ID = int(properties.DeviceID)
	info.VendorID = int(properties.VendorID)
	info.Name = vk.ToString(properties.DeviceName[:])
	info.DriverVersion = int(properties.DriverVersion)
	info.Type = typeName(properties.DeviceType)

	return info
}

func typeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	}
	return "other"
}

// SetSurface takes ownership of a surface created by the windowing system.
func (v *Instance) SetSurface(pSurface unsafe.Pointer) {
	v.surface = vk.SurfaceFromPointer(uintptr(pSurface))
}

// Surface returns the surface set with SetSurface
func (v *Instance) Surface() vk.Surface {
	if v.surface == nil {
		return vk.NullSurface
	}
	return v.surface
}

// NewContext picks a physical device that can present to the surface
// and creates a logical device with one queue on it.
func (v *Instance) NewContext(extensions []string) (*Context, error) {
	if v.surface == nil {
		return nil, errors.New("no surface set on instance")
	}

	var (
		chosen *Context
		info   PhysicalDeviceInfo
	)
	for _, pd := range v.availableDevices {
		candidate := describe(pd)
		if candidate.Invalid || !hasExtensions(candidate, extensions) {
			continue
		}
		family, ok := SelectQueueFamily(v.queueFamilies(pd))
		if !ok {
			continue
		}
		if chosen == nil || Preferred(candidate, info) {
			chosen = &Context{Physical: pd, QueueFamily: family}
			info = candidate
		}
	}
	if chosen == nil {
		return nil, ErrNoSuitableDevice
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: chosen.QueueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: SafeStrings(extensions),
	}

	var device vk.Device
	if err := vk.Error(vk.CreateDevice(chosen.Physical, &dci, nil, &device)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateDevice()")
	}

	var queue vk.Queue
	vk.GetDeviceQueue(device, chosen.QueueFamily, 0, &queue)

	chosen.Device = device
	chosen.Queue = queue
	chosen.Surface = v.surface
	chosen.Info = info
	return chosen, nil
}

func (v *Instance) queueFamilies(pd vk.PhysicalDevice) []QueueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	properties := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, properties)

	families := make([]QueueFamily, count)
	for idx := range properties {
		properties[idx].Deref()

		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(idx), v.surface, &supportsPresent)

		families[idx] = QueueFamily{
			Graphics: properties[idx].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			Present:  supportsPresent.B(),
		}
	}
	return families
}

func hasExtensions(info PhysicalDeviceInfo, extensions []string) bool {
	for _, ext := range extensions {
		if !info.HasExtension(ext) {
			return false
		}
	}
	return true
}

// Destroy destroys the surface and the instance.
// Every Context created from it must be destroyed first.
func (v *Instance) Destroy() {
	if v.debugReport != nil {
		vk.DestroyDebugReportCallback(v.instance, v.debugReport, nil)
		v.debugReport = nil
	}
	if v.surface != nil {
		vk.DestroySurface(v.instance, v.surface, nil)
		v.surface = nil
	}
	v.availableDevices = nil
	vk.DestroyInstance(v.instance, nil)
}

// Context is a logical device with the queue frames are submitted to.
type Context struct {
	Physical    vk.PhysicalDevice
	Device      vk.Device
	Queue       vk.Queue
	QueueFamily uint32
	Surface     vk.Surface
	Info        PhysicalDeviceInfo
}

// String implements fmt.Stringer
func (c *Context) String() string {
	return fmt.Sprintf("%s (%s, queue family %d)", c.Info.Name, c.Info.Type, c.QueueFamily)
}

// Destroy waits for the device and destroys it.
func (c *Context) Destroy() {
	vk.DeviceWaitIdle(c.Device)
	vk.DestroyDevice(c.Device, nil)
}

// SafeString null terminates s for the Vulkan API.
func SafeString(s string) string {
	return s + "\x00"
}

// SafeStrings null terminates every string in sgs.
func SafeStrings(sgs []string) []string {
	safe := make([]string, 0, len(sgs))
	for _, s := range sgs {
		safe = append(safe, SafeString(s))
	}
	return safe
}
