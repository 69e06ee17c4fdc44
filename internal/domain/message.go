package domain

// JobMessage wraps one durable-queue delivery. The payload is handed over
// undecoded: deserialisation happens in the worker loop, so a malformed
// payload can be acked as a poison pill without ever constructing a
// Sandbox. Ack/Nack are bound to the concrete broker message that carried
// Body; workers never touch the underlying client directly.
type JobMessage struct {
	Body []byte
	Ack  func() error
	Nack func(requeue bool) error
}
