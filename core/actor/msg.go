package actor

import "github.com/DrewBurkhart/priact/internal/reflector"

// msgTyper lets a message override the routing name derived from its Go type.
type msgTyper interface{ MsgType() string }

func msgTypeFor[T any]() string {
	var z T
	if mt, ok := any(z).(msgTyper); ok {
		return mt.MsgType()
	}
	return reflector.NameFor[T]()
}

func msgTypeOf(x any) string {
	if req, ok := x.(*request); ok {
		x = req.msg
	}
	if mt, ok := x.(msgTyper); ok {
		return mt.MsgType()
	}
	return reflector.NameOf(x)
}
