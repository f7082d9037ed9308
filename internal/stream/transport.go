package stream

// Params identifies one dial attempt.
type Params struct {
	Token        string
	ConnectionID int
}

// Listener receives transport notifications for one channel.
type Listener interface {
	OnOpen()
	OnMessage(frame string)
	OnError(err error)
}

// Channel is an open (or opening) push channel.
type Channel interface {
	// Close releases the channel. It must not block and must be safe to call more than once.
	Close()
}

// Dialer opens push channels.
//
// Dial must not block and must never call the listener before it returns.
type Dialer interface {
	Dial(p Params, l Listener) Channel
}

// Handler receives the notifications of the channel currently owned by a [Manager].
//
// Handler methods are called one at a time. They must not call [Manager.Disconnect] or [Manager.Close].
type Handler interface {
	OnConnect()
	OnMessage(frame string)
	OnDisconnect()
	OnError(err error)
}

// HandlerFuncs adapts optional functions to a [Handler]. Nil fields are skipped.
type HandlerFuncs struct {
	Connect    func()
	Message    func(frame string)
	Disconnect func()
	Error      func(err error)
}

func (h HandlerFuncs) OnConnect() {
	if h.Connect != nil {
		h.Connect()
	}
}

func (h HandlerFuncs) OnMessage(frame string) {
	if h.Message != nil {
		h.Message(frame)
	}
}

func (h HandlerFuncs) OnDisconnect() {
	if h.Disconnect != nil {
		h.Disconnect()
	}
}

func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}
