package xymodem

// Callbacks are the host hooks the session controller drives. All fields
// are optional; nil callbacks use a no-op default.
type Callbacks struct {
	// Log receives human-readable progress and diagnostic messages. This
	// is distinct from Logger (which is for wire-level tracing): Log
	// messages are meant for an end user, Logger output for a developer.
	Log func(message string)

	// Progress is called after every accepted data block with the bytes
	// written so far and the declared total (0 if unknown).
	Progress func(bytesSoFar, declaredTotal int64)

	// Received is called once per successfully completed file.
	Received func(Download)
}

func defaultCallbacks() *Callbacks {
	return &Callbacks{
		Log:      func(string) {},
		Progress: func(int64, int64) {},
		Received: func(Download) {},
	}
}

// mergeCallbacks fills any nil field of user with the no-op default, so
// the controller never has to nil-check a callback before calling it.
func mergeCallbacks(user *Callbacks) *Callbacks {
	def := defaultCallbacks()
	if user == nil {
		return def
	}
	result := &Callbacks{
		Log:      user.Log,
		Progress: user.Progress,
		Received: user.Received,
	}
	if result.Log == nil {
		result.Log = def.Log
	}
	if result.Progress == nil {
		result.Progress = def.Progress
	}
	if result.Received == nil {
		result.Received = def.Received
	}
	return result
}
