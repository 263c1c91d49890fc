package ports

// InstanceLock guards against two companion servers running at once
type InstanceLock interface {
	// Acquire takes the lock without blocking; it fails if another live process holds it
	Acquire() error
	// HolderPID returns the PID recorded by the current holder, or 0
	HolderPID() int
	Release() error
}
