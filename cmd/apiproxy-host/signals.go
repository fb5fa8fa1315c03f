package main

import "os"

type action int

const (
	actionNone action = iota
	actionRestart
	actionStatus
	actionShutdown
)

func (a action) String() string {
	switch a {
	case actionRestart:
		return "restart"
	case actionStatus:
		return "status"
	case actionShutdown:
		return "shutdown"
	default:
		return "none"
	}
}

// signalAction maps a received signal to what the host does about it.
func signalAction(sig os.Signal) action {
	if a, ok := signalActions[sig]; ok {
		return a
	}
	return actionNone
}

// watchedSignals lists every signal with an action, for signal.Notify.
var watchedSignals = func() []os.Signal {
	sigs := make([]os.Signal, 0, len(signalActions))
	for sig := range signalActions {
		sigs = append(sigs, sig)
	}
	return sigs
}()
