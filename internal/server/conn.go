package server

import (
	"context"
	"net"
)

// ConnInfo describes the connection a request arrived on. It is provenance only and
// plays no part in authorization.
type ConnInfo struct {
	RemoteAddr string
	// UnixUID is the peer's user id on a Unix-socket connection, when the platform
	// reports it.
	UnixUID *uint32
}

type connInfoKey struct{}

// ConnContext is installed as http.Server.ConnContext.
func ConnContext(ctx context.Context, c net.Conn) context.Context {
	info := ConnInfo{}
	if addr := c.RemoteAddr(); addr != nil {
		info.RemoteAddr = addr.String()
	}
	if uc, ok := c.(*net.UnixConn); ok {
		if uid, ok := peerUID(uc); ok {
			info.UnixUID = &uid
		}
	}
	return context.WithValue(ctx, connInfoKey{}, info)
}

func ConnInfoFrom(ctx context.Context) (ConnInfo, bool) {
	info, ok := ctx.Value(connInfoKey{}).(ConnInfo)
	return info, ok
}

// WithConnInfo attaches info to ctx; tests use it in place of a real connection.
func WithConnInfo(ctx context.Context, info ConnInfo) context.Context {
	return context.WithValue(ctx, connInfoKey{}, info)
}
