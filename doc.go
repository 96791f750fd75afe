// Package daro is a real-time compositing engine for broadcast graphics.
//
// An [Engine] composites up to 64 layers (rectangles, ellipses, text,
// images, video clips and external streams, optionally masked) into a
// fixed-resolution RGBA frame at a fixed rate, typically 1920x1080 at
// 50 frames per second. Frames are published to a single-slot exchange
// that a preview or playout process reads at its own cadence, and can be
// broadcast over WebSocket.
//
// # Lifecycle
//
//	e := daro.New()
//	if err := e.Initialize(1920, 1080, 50); err != nil {
//	    log.Fatal(daro.Code(err), err)
//	}
//	defer e.Shutdown()
//
//	e.SetLayerCount(1)
//	e.UpdateLayer(0, layer.Layer{
//	    Active: true, Type: layer.TypeText, Text: "HELLO",
//	    PosX: 960, PosY: 540, SizeX: 800, SizeY: 200,
//	    Opacity: 1, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
//	})
//
//	s := daro.NewScheduler(e)
//	s.Start()
//
// # Concurrency
//
// One engine lock serializes everything that touches the device and the
// layer array. The resource cache and the video registry have locks of
// their own, always taken after the engine lock. The frame buffer is
// read through [Engine.LockFrameBuffer] without contending with a
// composite beyond the copy of one frame.
//
// # Device loss
//
// The device is polled at the start of every frame call. Once it reports
// loss the engine refuses to composite or publish until
// [Engine.RecoverDevice] succeeds, and a running [Scheduler] stops.
package daro
