// Package cache provides the reference-counted resource cache used for
// textures and connected streams.
//
// Repeated loads of one key share a single physical resource and return
// the same [Handle]. The resource is released when the last reference is
// dropped, or evicted later when the cache needs room and nothing
// references it:
//
//	c := cache.New[*image.RGBA](64, loadTexture, releaseTexture)
//	h, err := c.Load("media/logo.png")
//	...
//	img, ok := c.Get(h)
//	c.Unload(h)
//
// Load and release callbacks run outside the cache lock so they may take
// other locks (the engine's device lock in particular).
package cache
