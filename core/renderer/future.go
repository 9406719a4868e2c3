// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"github.com/devblok/camvis/core"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// pendingFrame is one submission that may still be executing.
type pendingFrame struct {
	fence         vk.Fence
	commandBuffer vk.CommandBuffer
	acquired      vk.Semaphore
	renderDone    vk.Semaphore

	// chain is signaled with the frame and waited on by the next
	// submission. Nil once ownership moved to the next frame.
	chain vk.Semaphore

	retained []core.Releasable
}

// frameFuture tracks frames in submission order.
type frameFuture struct {
	device  vk.Device
	pool    vk.CommandPool
	pending []*pendingFrame
}

// CleanupFinished implements core.Future. Frames complete in order,
// so polling stops at the first one still running.
func (f *frameFuture) CleanupFinished() {
	done := 0
	for _, frame := range f.pending {
		if vk.GetFenceStatus(f.device, frame.fence) != vk.Success {
			break
		}
		f.release(frame)
		done++
	}
	f.pending = f.pending[done:]
}

// Retain implements core.Future
func (f *frameFuture) Retain(r core.Releasable) {
	if r == nil {
		return
	}
	if len(f.pending) == 0 {
		r.Release()
		return
	}
	last := f.pending[len(f.pending)-1]
	last.retained = append(last.retained, r)
}

func (f *frameFuture) release(frame *pendingFrame) {
	vk.DestroyFence(f.device, frame.fence, nil)
	vk.FreeCommandBuffers(f.device, f.pool, 1, []vk.CommandBuffer{frame.commandBuffer})
	for _, s := range []vk.Semaphore{frame.acquired, frame.renderDone, frame.chain} {
		if s != nil {
			vk.DestroySemaphore(f.device, s, nil)
		}
	}
	for _, r := range frame.retained {
		r.Release()
	}
	frame.retained = nil
}

// lastChain hands over the semaphore signaled by the newest frame.
func (f *frameFuture) lastChain() vk.Semaphore {
	if len(f.pending) == 0 {
		return nil
	}
	last := f.pending[len(f.pending)-1]
	chain := last.chain
	last.chain = nil
	return chain
}

// Submit implements core.Queue
func (r *Renderer) Submit(s core.Submission) (core.Future, error) {
	after, ok := s.After.(*frameFuture)
	if !ok || after == nil {
		return nil, errors.Errorf("unexpected future type %T", s.After)
	}
	cb, ok := s.Commands.(vk.CommandBuffer)
	if !ok {
		return nil, errors.Errorf("unexpected command buffer type %T", s.Commands)
	}
	acquired, ok := s.ImageAcquired.(vk.Semaphore)
	if !ok {
		return nil, errors.Errorf("unexpected signal type %T", s.ImageAcquired)
	}
	sc, ok := s.Swapchain.(*swapchain)
	if !ok {
		return nil, errors.Errorf("unexpected swapchain type %T", s.Swapchain)
	}

	frame := &pendingFrame{
		commandBuffer: cb,
		acquired:      acquired,
	}
	var err error
	if frame.renderDone, err = newSemaphore(r.device); err != nil {
		return nil, err
	}
	if frame.chain, err = newSemaphore(r.device); err != nil {
		vk.DestroySemaphore(r.device, frame.renderDone, nil)
		return nil, err
	}
	if frame.fence, err = newFence(r.device); err != nil {
		vk.DestroySemaphore(r.device, frame.renderDone, nil)
		vk.DestroySemaphore(r.device, frame.chain, nil)
		return nil, err
	}

	waitSemaphores := []vk.Semaphore{acquired}
	waitStages := []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
	previous := after.lastChain()
	if previous != nil {
		waitSemaphores = append(waitSemaphores, previous)
		waitStages = append(waitStages, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit))
	}
	signalSemaphores := []vk.Semaphore{frame.renderDone, frame.chain}

	submitInfo := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb},
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
		PSignalSemaphores:    signalSemaphores,
	}}
	if err := vk.Error(vk.QueueSubmit(r.queue, 1, submitInfo, frame.fence)); err != nil {
		// Nothing was queued, the frame is torn down right away and
		// the previous frame keeps its chain semaphore.
		if previous != nil {
			after.pending[len(after.pending)-1].chain = previous
		}
		after.release(frame)
		return nil, errors.Wrap(err, "vk.QueueSubmit()")
	}

	// The previous chain semaphore is consumed by this submission
	// and destroyed together with it.
	if previous != nil {
		frame.retained = append(frame.retained, semaphoreRelease{device: r.device, semaphore: previous})
	}

	after.pending = append(after.pending, frame)

	imageIndices := []uint32{uint32(s.ImageIndex)}
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{frame.renderDone},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.handle},
		PImageIndices:      imageIndices,
	}
	if err := presentError(vk.QueuePresent(r.queue, &presentInfo)); err != nil {
		return after, err
	}
	return after, nil
}

// semaphoreRelease destroys a semaphore once the frame waiting on it is done.
type semaphoreRelease struct {
	device    vk.Device
	semaphore vk.Semaphore
}

func (s semaphoreRelease) Release() {
	vk.DestroySemaphore(s.device, s.semaphore, nil)
}
