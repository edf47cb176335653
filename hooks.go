package boothcam

// Hooks bundles the host lifecycle callbacks the adapter cares
// about. Wire them into the application's state machine:
//
//   - Setup once at boot, adopting the returned camera.
//   - StateChosenEnter when the layout-selection screen appears; the
//     video process spawns behind that screen so the first preview
//     frame shows without a cold-start delay.
//   - Cleanup at shutdown.
type Hooks struct {
	cam *Camera
}

// NewHooks wraps an existing camera in lifecycle callbacks.
func NewHooks(cam *Camera) *Hooks {
	return &Hooks{cam: cam}
}

// Setup returns the camera for the host to adopt.
func (h *Hooks) Setup() *Camera {
	return h.cam
}

// StateChosenEnter pre-warms the video stream.
func (h *Hooks) StateChosenEnter() {
	h.cam.Prewarm()
}

// Cleanup releases the camera. Safe to call even if the host never
// used it.
func (h *Hooks) Cleanup() {
	h.cam.Quit()
}
